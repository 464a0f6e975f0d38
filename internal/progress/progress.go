package progress

import "sync"

// Reporter receives progress events from the apply engine.
// Implementations must be safe for concurrent use by workers.
type Reporter interface {
	// SetTotal announces the amount of work in the plan
	SetTotal(totalFiles int, totalBytes int64)
	// Start begins tracking one action
	Start(path string, totalBytes int64)
	// Complete marks one action as finished
	Complete(path string, bytes int64)
	// Error reports a failed action
	Error(path string, err error)
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateTotal UpdateType = iota
	UpdateStart
	UpdateComplete
	UpdateError
)

// Update represents a single progress event
type Update struct {
	Type           UpdateType
	Path           string
	Bytes          int64
	FilesCompleted int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	Err            error
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// CallbackReporter implements Reporter by forwarding aggregated updates
// to a callback
type CallbackReporter struct {
	callback Callback

	mu             sync.Mutex
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	bytesCompleted int64
}

// NewCallbackReporter creates a reporter that forwards to cb
func NewCallbackReporter(cb Callback) *CallbackReporter {
	return &CallbackReporter{callback: cb}
}

// SetTotal implements Reporter
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
	update := r.snapshot(UpdateTotal, "", 0, nil)
	r.mu.Unlock()
	r.callback(update)
}

// Start implements Reporter
func (r *CallbackReporter) Start(path string, totalBytes int64) {
	r.mu.Lock()
	update := r.snapshot(UpdateStart, path, totalBytes, nil)
	r.mu.Unlock()
	r.callback(update)
}

// Complete implements Reporter
func (r *CallbackReporter) Complete(path string, bytes int64) {
	r.mu.Lock()
	r.filesCompleted++
	r.bytesCompleted += bytes
	update := r.snapshot(UpdateComplete, path, bytes, nil)
	r.mu.Unlock()
	r.callback(update)
}

// Error implements Reporter
func (r *CallbackReporter) Error(path string, err error) {
	r.mu.Lock()
	r.filesCompleted++
	update := r.snapshot(UpdateError, path, 0, err)
	r.mu.Unlock()
	r.callback(update)
}

// snapshot must be called with the mutex held
func (r *CallbackReporter) snapshot(t UpdateType, path string, bytes int64, err error) Update {
	return Update{
		Type:           t,
		Path:           path,
		Bytes:          bytes,
		FilesCompleted: r.filesCompleted,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
		Err:            err,
	}
}

// NullReporter discards all progress events
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) Start(path string, totalBytes int64)       {}
func (NullReporter) Complete(path string, bytes int64)         {}
func (NullReporter) Error(path string, err error)              {}
