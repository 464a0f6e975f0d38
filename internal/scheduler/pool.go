// Package scheduler provides the bounded worker pool that drives
// scanning, fingerprinting and applying.
package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool dispatches independent units of work across a fixed number of
// workers. Each unit blocks synchronously on its own I/O inside its
// worker, never blocking the pool.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count.
// A count of zero or less selects the available hardware parallelism.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count
func (p *Pool) Workers() int {
	return p.workers
}

// ForEach runs fn for every index in [0,n) across the pool. The first
// error cancels dispatch of remaining units; in-flight units finish.
// File-scoped failures should be recorded by fn and swallowed so
// sibling work continues.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return g.Wait()
		default:
		}
		i := i
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
