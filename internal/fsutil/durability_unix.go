//go:build !windows

package fsutil

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// DurableRenameSupported reports whether directory-level fsync is
// available, making renames crash-durable.
func DurableRenameSupported() bool {
	return true
}

// SyncDir forces a directory's metadata to stable storage so that a
// rename inside it survives an immediate crash.
func SyncDir(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// IsCrossDevice reports whether an error is a cross-filesystem rename
// failure (EXDEV).
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
