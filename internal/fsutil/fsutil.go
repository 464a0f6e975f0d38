// Package fsutil holds the filesystem-abstraction boundary: reserved temp
// naming, directory durability, and platform capability queries.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

const (
	// TempPrefix starts every temp file name created by the apply engine
	TempPrefix = ".kestrel-"
	// TempSuffix ends every temp file name created by the apply engine
	TempSuffix = ".tmp~"
	// LockFileName is the destination-root lock file name
	LockFileName = ".kestrel.lock"
)

// tempCounter gives each temp file a unique name within a process
var tempCounter atomic.Uint64

// TempPath generates a unique temp file path inside dir.
// Format: .kestrel-<pid>-<counter>.tmp~
func TempPath(dir string) string {
	name := fmt.Sprintf("%s%d-%d%s", TempPrefix, os.Getpid(), tempCounter.Add(1), TempSuffix)
	return filepath.Join(dir, name)
}

// IsTempName reports whether a base name matches the reserved temp
// convention. Such files are safe to delete unconditionally: no legitimate
// destination file may use the pattern.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, TempSuffix)
}

// IsReservedName reports whether a base name belongs to kestrel itself
// and must never appear in a scan or plan.
func IsReservedName(name string) bool {
	return IsTempName(name) || name == LockFileName
}

// RemoveIfExists removes a file, ignoring "not found" errors
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SweepOrphans walks root and removes every file matching the reserved
// temp convention, left behind by an interrupted prior run. Returns the
// number of files removed. Unreadable subtrees are skipped.
func SweepOrphans(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return filepath.SkipDir
		}
		if d.IsDir() {
			return nil
		}
		if IsTempName(d.Name()) {
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
