// Package engine orchestrates a full sync run: crash-recovery sweep,
// parallel tree scans, fingerprinting, plan construction and atomic
// apply, all dispatched through the worker pool.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelsync/kestrel/internal/core/apply"
	"github.com/kestrelsync/kestrel/internal/core/fingerprint"
	"github.com/kestrelsync/kestrel/internal/core/planner"
	"github.com/kestrelsync/kestrel/internal/core/scanner"
	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
	"github.com/kestrelsync/kestrel/internal/lock"
	"github.com/kestrelsync/kestrel/internal/logger"
	"github.com/kestrelsync/kestrel/internal/scheduler"

	"golang.org/x/sync/errgroup"
)

// Failure records a file-level failure during a run
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a completed (or dry) run
type Result struct {
	Plan           *domain.SyncPlan
	Stats          domain.Snapshot
	SourceWarnings []scanner.Warning
	DestWarnings   []scanner.Warning
	Failures       []Failure
	OrphansRemoved int
	Duration       time.Duration
}

// ExitCode maps the result onto the process exit status: zero on full
// success, nonzero if any file-level failure occurred
func (r *Result) ExitCode() int {
	if len(r.Failures) > 0 || r.Stats.FilesFailed > 0 {
		return 1
	}
	return 0
}

// Engine runs syncs
type Engine struct {
	opts Options
	pool *scheduler.Pool
	calc *fingerprint.DefaultCalculator
	log  logger.Logger
}

// New creates an engine from validated options
func New(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	calc, err := fingerprint.NewCalculator(fingerprint.Options{Algorithm: opts.Algorithm})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidOptions, err)
	}

	return &Engine{
		opts: opts,
		pool: scheduler.NewPool(opts.ThreadCount),
		calc: calc,
		log:  logger.With("component", "engine"),
	}, nil
}

// Sync mirrors destRoot to match sourceRoot. Classification happens
// entirely before any destination mutation; the returned stats reflect
// what was actually applied.
func (e *Engine) Sync(ctx context.Context, sourceRoot, destRoot string) (*Result, error) {
	start := time.Now()
	stats := domain.NewRunStats()
	result := &Result{}

	absSource, err := filepath.Abs(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, sourceRoot, err)
	}
	absDest, err := filepath.Abs(destRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, destRoot, err)
	}

	if !e.opts.DryRun {
		destLock := lock.New(absDest)
		if err := destLock.Acquire(); err != nil {
			return nil, err
		}
		defer func() {
			if err := destLock.Release(); err != nil {
				e.log.Warn("failed to release destination lock", "error", err)
			}
		}()

		// Remove temp files left by an interrupted prior run before
		// anything else looks at the destination.
		removed, sweepErr := fsutil.SweepOrphans(absDest)
		if sweepErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrRootUnreadable, destRoot, sweepErr)
		}
		result.OrphansRemoved = removed
		if removed > 0 {
			e.log.Info("removed orphaned temp files", "count", removed)
		}
	}

	sourceScan, destScan, err := e.scanBoth(ctx, absSource, absDest)
	if err != nil {
		return nil, err
	}
	result.SourceWarnings = sourceScan.Warnings
	result.DestWarnings = destScan.Warnings

	sourceSet, destSet, failed, err := e.fingerprintAll(ctx, sourceScan, destScan, stats)
	if err != nil {
		return nil, err
	}

	plan := planner.New(planner.Options{
		DeleteExtraneous: e.opts.DeleteExtraneous,
		FuzzyThreshold:   e.opts.FuzzyThreshold,
	}).Build(sourceSet, destSet)
	plan.FailedFingerprints = failed
	result.Plan = plan

	for _, path := range failed {
		result.Failures = append(result.Failures, Failure{Path: path, Err: domain.ErrHashFailed})
	}

	if e.opts.DryRun {
		result.Stats = stats.Snapshot()
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := e.applyPlan(ctx, absSource, absDest, plan, stats, result); err != nil {
		return nil, err
	}

	result.Stats = stats.Snapshot()
	result.Duration = time.Since(start)

	if e.opts.History != nil {
		if err := e.opts.History.RecordRun(absSource, absDest, start, time.Now(), result.Stats); err != nil {
			e.log.Warn("failed to record run history", "error", err)
		}
	}

	return result, nil
}

// scanBoth walks source and destination concurrently
func (e *Engine) scanBoth(ctx context.Context, absSource, absDest string) (*scanner.Result, *scanner.Result, error) {
	scan := scanner.New(e.opts.ExcludePatterns)

	var sourceScan, destScan *scanner.Result
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sourceScan, err = scan.Scan(ctx, absSource, domain.SideSource)
		return err
	})
	g.Go(func() error {
		var err error
		destScan, err = scan.Scan(ctx, absDest, domain.SideDest)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	e.log.Debug("scans complete",
		"source_files", len(sourceScan.Files),
		"dest_files", len(destScan.Files))
	return sourceScan, destScan, nil
}

// fingerprintAll hashes every scanned file across the pool. Unreadable
// files are excluded from the returned sets and reported; sibling files
// are unaffected. Input order is preserved, so the sets stay path-sorted.
func (e *Engine) fingerprintAll(ctx context.Context, sourceScan, destScan *scanner.Result, stats *domain.RunStats) ([]domain.FingerprintedFile, []domain.FingerprintedFile, []string, error) {
	type job struct {
		root   string
		record domain.FileRecord
	}

	jobs := make([]job, 0, len(sourceScan.Files)+len(destScan.Files))
	for _, f := range sourceScan.Files {
		jobs = append(jobs, job{root: sourceScan.Root, record: f})
	}
	for _, f := range destScan.Files {
		jobs = append(jobs, job{root: destScan.Root, record: f})
	}

	results := make([]domain.FingerprintedFile, len(jobs))
	errs := make([]error, len(jobs))

	err := e.pool.ForEach(ctx, len(jobs), func(ctx context.Context, i int) error {
		path := filepath.Join(jobs[i].root, filepath.FromSlash(jobs[i].record.Path))
		fp, hashErr := e.calc.File(ctx, path)
		if hashErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs[i] = hashErr
			return nil
		}
		results[i] = domain.FingerprintedFile{
			FileRecord:  jobs[i].record,
			Fingerprint: fp,
			GroupKey:    fingerprint.GroupKey(fp),
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	var sourceSet, destSet []domain.FingerprintedFile
	var failed []string
	for i := range jobs {
		if errs[i] != nil {
			e.log.Warn("fingerprint failed, file excluded from plan",
				"path", jobs[i].record.Path, "side", jobs[i].record.Side, "error", errs[i])
			failed = append(failed, jobs[i].record.Path)
			stats.IncFailed()
			continue
		}
		if jobs[i].record.Side == domain.SideSource {
			sourceSet = append(sourceSet, results[i])
		} else {
			destSet = append(destSet, results[i])
		}
	}
	return sourceSet, destSet, failed, nil
}

// applyPlan executes the plan through the pool with per-path
// reservations. Deletes run in a second phase so directory pruning
// never races writes.
func (e *Engine) applyPlan(ctx context.Context, absSource, absDest string, plan *domain.SyncPlan, stats *domain.RunStats, result *Result) error {
	applier := apply.New(absSource, absDest, apply.Options{
		Verify:         e.opts.Verify,
		PreserveTimes:  e.opts.PreserveTimes,
		PreserveMode:   true,
		PruneEmptyDirs: e.opts.PruneEmptyDirs,
	}, e.calc, stats, e.opts.Progress)

	if e.opts.Progress != nil {
		e.opts.Progress.SetTotal(plan.Stats.TotalActions-plan.Stats.FilesToSkip, plan.Stats.BytesToCopy)
	}

	var writes, deletes []domain.SyncAction
	for _, action := range plan.Actions {
		if action.Type == domain.ActionDelete {
			deletes = append(deletes, action)
		} else {
			writes = append(writes, action)
		}
	}

	reservations := scheduler.NewReservations()
	var mu sync.Mutex

	run := func(actions []domain.SyncAction) error {
		return e.pool.ForEach(ctx, len(actions), func(ctx context.Context, i int) error {
			action := actions[i]
			if !reservations.Acquire(action.Path, action.OldPath) {
				// Cannot happen for a well-formed plan; record and move on.
				mu.Lock()
				result.Failures = append(result.Failures, Failure{
					Path: action.Path,
					Err:  fmt.Errorf("destination path already reserved"),
				})
				mu.Unlock()
				stats.IncFailed()
				return nil
			}
			defer reservations.Release(action.Path, action.OldPath)

			if err := applier.Apply(ctx, action); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				result.Failures = append(result.Failures, Failure{Path: action.Path, Err: err})
				mu.Unlock()
				stats.IncFailed()
			}
			return nil
		})
	}

	if err := run(writes); err != nil {
		return err
	}
	return run(deletes)
}
