// Package apply executes sync actions against the destination tree with
// crash-safe I/O: every write is staged to a temp file, forced to stable
// storage and atomically renamed into place.
package apply

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
	"github.com/kestrelsync/kestrel/internal/logger"
	"github.com/kestrelsync/kestrel/internal/progress"
)

// Options configures the apply engine
type Options struct {
	// Verify re-reads every finalized copy and compares its fingerprint
	// against the source fingerprint
	Verify bool

	// PreserveTimes carries the source modification time onto copies
	PreserveTimes bool

	// PreserveMode carries the source permission bits onto copies (Unix)
	PreserveMode bool

	// PruneEmptyDirs removes now-empty ancestor directories after deletes
	PruneEmptyDirs bool
}

// Applier executes individual sync actions
type Applier struct {
	sourceRoot string
	destRoot   string
	opts       Options
	calc       fingerprint.Calculator
	stats      *domain.RunStats
	reporter   progress.Reporter
	log        logger.Logger

	// mkdirGroup deduplicates concurrent parent-directory creation
	// across the worker pool
	mkdirGroup singleflight.Group
}

// New creates an applier for one source/destination pair
func New(sourceRoot, destRoot string, opts Options, calc fingerprint.Calculator, stats *domain.RunStats, reporter progress.Reporter) *Applier {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	return &Applier{
		sourceRoot: sourceRoot,
		destRoot:   destRoot,
		opts:       opts,
		calc:       calc,
		stats:      stats,
		reporter:   reporter,
		log:        logger.With("component", "apply"),
	}
}

// Apply executes a single action. File-scoped failures are returned to
// the caller for recording; they never abort sibling work.
func (a *Applier) Apply(ctx context.Context, action domain.SyncAction) error {
	switch action.Type {
	case domain.ActionSkip:
		a.stats.IncSkipped()
		return nil
	case domain.ActionCopy:
		return a.applyCopy(ctx, action)
	case domain.ActionRename:
		return a.applyRename(action)
	case domain.ActionDelete:
		return a.applyDelete(action)
	default:
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
}

// applyCopy streams the source file into a temp file next to the final
// destination and atomically renames it into place
func (a *Applier) applyCopy(ctx context.Context, action domain.SyncAction) error {
	a.reporter.Start(action.Path, action.Size)

	srcPath := filepath.Join(a.sourceRoot, filepath.FromSlash(action.Path))
	dstPath := filepath.Join(a.destRoot, filepath.FromSlash(action.Path))

	if err := a.ensureParent(dstPath); err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}
	defer src.Close()

	writer, err := NewAtomicWriter(dstPath)
	if err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}

	written, err := io.Copy(writer, src)
	if err != nil {
		writer.Abort()
		a.reporter.Error(action.Path, err)
		return err
	}

	var want *domain.Fingerprint
	if a.opts.Verify && action.Source != nil {
		want = &action.Source.Fingerprint
	}
	if err := writer.Commit(ctx, a.calc, want); err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}

	a.preserveMetadata(dstPath, action.Source)
	a.syncParent(dstPath)

	a.stats.AddBytesCopied(written)
	a.stats.IncCopied()
	a.reporter.Complete(action.Path, written)
	a.log.Debug("copied", "path", action.Path, "bytes", written)
	return nil
}

// applyRename relocates an existing destination file without touching
// its content
func (a *Applier) applyRename(action domain.SyncAction) error {
	a.reporter.Start(action.Path, 0)

	oldPath := filepath.Join(a.destRoot, filepath.FromSlash(action.OldPath))
	newPath := filepath.Join(a.destRoot, filepath.FromSlash(action.Path))

	if err := a.ensureParent(newPath); err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		if !fsutil.IsCrossDevice(err) {
			a.reporter.Error(action.Path, err)
			return err
		}
		// Destination spans filesystems; move the bytes instead.
		if err := a.moveAcrossDevices(oldPath, newPath); err != nil {
			a.reporter.Error(action.Path, fmt.Errorf("%w: %v", domain.ErrCrossDevice, err))
			return fmt.Errorf("%w: %s: %v", domain.ErrCrossDevice, action.Path, err)
		}
	}

	a.syncParent(newPath)
	a.syncParent(oldPath)

	a.stats.AddBytesSaved(action.Size)
	a.stats.IncRenamed()
	a.reporter.Complete(action.Path, 0)
	a.log.Debug("renamed", "from", action.OldPath, "to", action.Path)
	return nil
}

// applyDelete removes an extraneous destination file and optionally
// prunes now-empty ancestor directories
func (a *Applier) applyDelete(action domain.SyncAction) error {
	a.reporter.Start(action.Path, 0)

	dstPath := filepath.Join(a.destRoot, filepath.FromSlash(action.Path))
	if err := fsutil.RemoveIfExists(dstPath); err != nil {
		a.reporter.Error(action.Path, err)
		return err
	}
	a.syncParent(dstPath)

	if a.opts.PruneEmptyDirs {
		a.pruneAncestors(filepath.Dir(dstPath))
	}

	a.stats.IncDeleted()
	a.reporter.Complete(action.Path, 0)
	a.log.Debug("deleted", "path", action.Path)
	return nil
}

// ensureParent creates the destination parent directory, deduplicating
// concurrent MkdirAll calls from the pool
func (a *Applier) ensureParent(path string) error {
	dir := filepath.Dir(path)
	_, err, _ := a.mkdirGroup.Do(dir, func() (any, error) {
		return nil, os.MkdirAll(dir, 0755)
	})
	return err
}

// syncParent forces the parent directory's metadata to stable storage
// where the platform supports it, so the rename survives a crash
func (a *Applier) syncParent(path string) {
	if !fsutil.DurableRenameSupported() {
		return
	}
	if err := fsutil.SyncDir(filepath.Dir(path)); err != nil {
		a.log.Warn("directory fsync failed", "dir", filepath.Dir(path), "error", err)
	}
}

// preserveMetadata carries source mtime and permission bits onto a
// finalized copy; failures only warn
func (a *Applier) preserveMetadata(dstPath string, src *domain.FingerprintedFile) {
	if src == nil {
		return
	}
	if a.opts.PreserveMode && src.Mode != 0 {
		if err := os.Chmod(dstPath, os.FileMode(src.Mode)); err != nil {
			a.log.Warn("chmod failed", "path", dstPath, "error", err)
		}
	}
	if a.opts.PreserveTimes {
		if err := os.Chtimes(dstPath, time.Now(), src.ModTime); err != nil {
			a.log.Warn("chtimes failed", "path", dstPath, "error", err)
		}
	}
}

// moveAcrossDevices copies a destination file to its new location and
// removes the original, used when rename fails with EXDEV
func (a *Applier) moveAcrossDevices(oldPath, newPath string) error {
	in, err := os.Open(oldPath)
	if err != nil {
		return err
	}
	defer in.Close()

	writer, err := NewAtomicWriter(newPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(writer, in); err != nil {
		writer.Abort()
		return err
	}
	if err := writer.Commit(context.Background(), a.calc, nil); err != nil {
		return err
	}
	return fsutil.RemoveIfExists(oldPath)
}

// pruneAncestors removes empty directories from dir up to (but never
// including) the destination root
func (a *Applier) pruneAncestors(dir string) {
	root := filepath.Clean(a.destRoot)
	for {
		dir = filepath.Clean(dir)
		if dir == root || len(dir) <= len(root) {
			return
		}
		// Remove fails on non-empty directories, which ends the walk.
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
