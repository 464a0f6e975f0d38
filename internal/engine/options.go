package engine

import (
	"fmt"

	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/progress"
	"github.com/kestrelsync/kestrel/internal/state"
)

// Options configures a sync run
type Options struct {
	// DryRun computes the plan and skips apply
	DryRun bool

	// DeleteExtraneous enables Delete actions for destination files
	// with no source counterpart
	DeleteExtraneous bool

	// Verify re-reads every finalized copy against its source fingerprint
	Verify bool

	// ThreadCount is the worker pool size; 0 selects the hardware
	// parallelism
	ThreadCount int

	// ExcludePatterns filters both scans symmetrically; an excluded
	// destination path is never eligible for deletion
	ExcludePatterns []string

	// FuzzyThreshold overrides the fuzzy rename pairing threshold
	FuzzyThreshold float64

	// Algorithm selects the content fingerprint; empty means BLAKE3
	Algorithm fingerprint.Algorithm

	// PreserveTimes carries source modification times onto copies
	PreserveTimes bool

	// PruneEmptyDirs removes now-empty ancestors after deletes
	PruneEmptyDirs bool

	// Progress receives apply events; nil disables reporting
	Progress progress.Reporter

	// History records completed runs; nil disables the journal
	History *state.Manager
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Algorithm:      fingerprint.BLAKE3,
		FuzzyThreshold: 0,
		PreserveTimes:  true,
		PruneEmptyDirs: true,
	}
}

// Validate checks option consistency
func (o *Options) Validate() error {
	if o.ThreadCount < 0 {
		return fmt.Errorf("%w: thread count must be positive", domain.ErrInvalidOptions)
	}
	if o.Algorithm != "" && !fingerprint.IsSupported(o.Algorithm) {
		return fmt.Errorf("%w: unsupported algorithm %q", domain.ErrInvalidOptions, o.Algorithm)
	}
	if o.FuzzyThreshold < 0 || o.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy threshold must be in [0,1]", domain.ErrInvalidOptions)
	}
	return nil
}
