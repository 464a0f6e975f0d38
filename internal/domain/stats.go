package domain

import "sync/atomic"

// RunStats accumulates counters for a single sync run.
// All updates are atomic and commutative, so final totals do not depend
// on worker completion order. A fresh instance is created per invocation;
// counters are never read for control decisions mid-run.
type RunStats struct {
	bytesCopied  atomic.Int64
	bytesSaved   atomic.Int64
	filesCopied  atomic.Int64
	filesRenamed atomic.Int64
	filesDeleted atomic.Int64
	filesSkipped atomic.Int64
	filesFailed  atomic.Int64
}

// NewRunStats creates an empty stats accumulator
func NewRunStats() *RunStats {
	return &RunStats{}
}

// AddBytesCopied records bytes physically transferred
func (s *RunStats) AddBytesCopied(n int64) { s.bytesCopied.Add(n) }

// AddBytesSaved records bytes that a rename avoided transferring
func (s *RunStats) AddBytesSaved(n int64) { s.bytesSaved.Add(n) }

// IncCopied records a completed copy
func (s *RunStats) IncCopied() { s.filesCopied.Add(1) }

// IncRenamed records a completed rename
func (s *RunStats) IncRenamed() { s.filesRenamed.Add(1) }

// IncDeleted records a completed delete
func (s *RunStats) IncDeleted() { s.filesDeleted.Add(1) }

// IncSkipped records a skipped file
func (s *RunStats) IncSkipped() { s.filesSkipped.Add(1) }

// IncFailed records a file-level failure
func (s *RunStats) IncFailed() { s.filesFailed.Add(1) }

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	BytesCopied  int64
	BytesSaved   int64
	FilesCopied  int64
	FilesRenamed int64
	FilesDeleted int64
	FilesSkipped int64
	FilesFailed  int64
}

// Snapshot returns the current counter values
func (s *RunStats) Snapshot() Snapshot {
	return Snapshot{
		BytesCopied:  s.bytesCopied.Load(),
		BytesSaved:   s.bytesSaved.Load(),
		FilesCopied:  s.filesCopied.Load(),
		FilesRenamed: s.filesRenamed.Load(),
		FilesDeleted: s.filesDeleted.Load(),
		FilesSkipped: s.filesSkipped.Load(),
		FilesFailed:  s.filesFailed.Load(),
	}
}

// HasFailures reports whether any file-level failure was recorded
func (s *RunStats) HasFailures() bool {
	return s.filesFailed.Load() > 0
}
