//go:build windows

package fsutil

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// DurableRenameSupported reports whether directory-level fsync is
// available. Windows does not allow opening directories for sync, so
// only file-level durability holds there.
func DurableRenameSupported() bool {
	return false
}

// SyncDir is a no-op where directory fsync is unsupported
func SyncDir(path string) error {
	return nil
}

// IsCrossDevice reports whether an error is a cross-filesystem rename
// failure.
func IsCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.Is(err, windows.ERROR_NOT_SAME_DEVICE) {
		return true
	}
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, windows.ERROR_NOT_SAME_DEVICE)
	}
	return false
}
