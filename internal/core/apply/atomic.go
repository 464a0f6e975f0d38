package apply

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
)

const copyBufferSize = 256 * 1024

// AtomicWriter stages a destination file write so the final path is
// either fully old or fully new, never partially written, even across a
// crash. Data goes to a temp file in the destination's parent directory
// (same filesystem, so the final rename is atomic), is forced to stable
// storage, then renamed into place.
type AtomicWriter struct {
	tempPath  string
	finalPath string
	file      *os.File
	writer    *bufio.Writer
	committed bool
}

// NewAtomicWriter creates a temp file next to finalPath and returns a
// writer staging into it.
func NewAtomicWriter(finalPath string) (*AtomicWriter, error) {
	tempPath := fsutil.TempPath(filepath.Dir(finalPath))
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	return &AtomicWriter{
		tempPath:  tempPath,
		finalPath: finalPath,
		file:      f,
		writer:    bufio.NewWriterSize(f, copyBufferSize),
	}, nil
}

// Write stages data into the temp file
func (w *AtomicWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

// TempPath returns the staging path, valid until Commit or Abort
func (w *AtomicWriter) TempPath() string {
	return w.tempPath
}

// Commit flushes and fsyncs the temp file, optionally verifies its
// content against want by re-reading it, then atomically renames it onto
// the final path. On verify mismatch the temp file is removed and the
// destination is left untouched.
func (w *AtomicWriter) Commit(ctx context.Context, calc fingerprint.Calculator, want *domain.Fingerprint) error {
	if w.committed {
		return fmt.Errorf("atomic writer already committed")
	}

	if err := w.writer.Flush(); err != nil {
		w.Abort()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return err
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		w.Abort()
		return err
	}
	w.file = nil

	if want != nil {
		got, err := calc.File(ctx, w.tempPath)
		if err != nil {
			w.Abort()
			return err
		}
		if got != *want {
			w.Abort()
			return fmt.Errorf("%w: %s: want %s, got %s", domain.ErrVerifyMismatch, w.finalPath, want, got)
		}
	}

	if err := os.Rename(w.tempPath, w.finalPath); err != nil {
		if !fsutil.IsCrossDevice(err) {
			w.Abort()
			return err
		}
		// Temp and final ended up on different filesystems; degrade to
		// copy-then-delete. File-level durability still holds.
		if copyErr := copyAcrossDevices(w.tempPath, w.finalPath); copyErr != nil {
			w.Abort()
			return fmt.Errorf("%w: %s: %v", domain.ErrCrossDevice, w.finalPath, copyErr)
		}
		_ = os.Remove(w.tempPath)
	}
	w.committed = true
	return nil
}

// Abort removes the temp file; safe to call after a failed Commit
func (w *AtomicWriter) Abort() {
	if w.committed {
		return
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	_ = fsutil.RemoveIfExists(w.tempPath)
}

// copyAcrossDevices streams src into dst with an fsync, used when the
// atomic rename fails with a cross-device error
func copyAcrossDevices(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
