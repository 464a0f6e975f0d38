package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
	"github.com/kestrelsync/kestrel/internal/logger"
)

// Warning records a non-fatal problem encountered during a scan
type Warning struct {
	Path string
	Err  error
}

// Result is the outcome of scanning one tree
type Result struct {
	// Root is the absolute path that was scanned
	Root string

	// Files holds the discovered regular files, sorted by relative path
	Files []domain.FileRecord

	// Warnings lists skipped subtrees and entries
	Warnings []Warning
}

// TotalSize returns the sum of all file sizes in the result
func (r *Result) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// Scanner walks a root directory and emits file records
type Scanner struct {
	excludes []string
	log      logger.Logger
}

// New creates a scanner with the given exclude patterns.
// Patterns are matched against both the base name and the full
// slash-separated relative path.
func New(excludes []string) *Scanner {
	return &Scanner{
		excludes: excludes,
		log:      logger.With("component", "scanner"),
	}
}

// Scan walks root and returns its regular files sorted by relative path.
//
// Symlinks are never followed and never reported. Subtree permission
// errors are non-fatal: the subtree is skipped and a warning recorded.
// An unreadable root is fatal.
func (s *Scanner) Scan(ctx context.Context, root string, side domain.Side) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, root)
	}

	result := &Result{Root: absRoot}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if walkErr != nil {
			if path == absRoot {
				return fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, root, walkErr)
			}
			s.log.Warn("skipping unreadable subtree", "path", path, "error", walkErr)
			result.Warnings = append(result.Warnings, Warning{Path: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if path != absRoot && fsutil.IsReservedName(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && s.excluded(rel, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		// Symlinks are never followed
		if d.Type()&fs.ModeSymlink != 0 {
			s.log.Debug("skipping symlink", "path", rel)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if s.excluded(rel, d.Name()) {
			return nil
		}

		fi, statErr := d.Info()
		if statErr != nil {
			s.log.Warn("skipping unreadable entry", "path", path, "error", statErr)
			result.Warnings = append(result.Warnings, Warning{Path: path, Err: statErr})
			return nil
		}

		result.Files = append(result.Files, domain.FileRecord{
			Path:    rel,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			Mode:    uint32(fi.Mode().Perm()),
			Side:    side,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir visits entries in lexical order per directory, but files in
	// nested directories interleave; sorting fixes the merge-join order.
	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})

	return result, nil
}

// excluded checks a relative path against the exclude patterns
func (s *Scanner) excluded(rel, base string) bool {
	for _, pattern := range s.excludes {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
