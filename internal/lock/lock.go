// Package lock prevents two processes from mirroring the same
// destination tree concurrently.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrelsync/kestrel/internal/domain"
	"github.com/kestrelsync/kestrel/internal/fsutil"
)

// DefaultStaleTimeout is the duration after which a lock whose holder
// cannot be probed is considered stale
const DefaultStaleTimeout = 30 * time.Minute

// Info contains metadata about the lock holder
type Info struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
}

// DestLock is a file-based lock placed at the destination root
type DestLock struct {
	lockPath     string
	staleTimeout time.Duration
	info         *Info
}

// New creates a lock for the given destination root
func New(destRoot string) *DestLock {
	return &DestLock{
		lockPath:     filepath.Join(destRoot, fsutil.LockFileName),
		staleTimeout: DefaultStaleTimeout,
	}
}

// SetStaleTimeout overrides the stale-lock timeout
func (l *DestLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Acquire attempts to take the lock. It fails with domain.ErrLockHeld
// when a live process on this host already holds it; stale locks are
// broken.
func (l *DestLock) Acquire() error {
	if existing, err := l.read(); err == nil {
		if l.isStale(existing) {
			if err := os.Remove(l.lockPath); err != nil {
				return fmt.Errorf("failed to remove stale lock: %w", err)
			}
		} else {
			return fmt.Errorf("%w: held by pid %d on %s since %s",
				domain.ErrLockHeld, existing.PID, existing.Hostname,
				existing.StartTime.Format(time.RFC3339))
		}
	}

	hostname, _ := os.Hostname()
	info := &Info{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
	}
	if err := l.write(info); err != nil {
		return err
	}
	l.info = info
	return nil
}

// Release removes the lock file if this instance holds it
func (l *DestLock) Release() error {
	if l.info == nil {
		return nil
	}

	existing, err := l.read()
	if err == nil && existing.PID == l.info.PID && existing.Hostname == l.info.Hostname {
		if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove lock: %w", err)
		}
	}
	l.info = nil
	return nil
}

// isStale reports whether a lock belongs to a dead process or exceeded
// the stale timeout. Liveness is only probed for locks taken on this
// host.
func (l *DestLock) isStale(info *Info) bool {
	hostname, _ := os.Hostname()
	if info.Hostname == hostname && !processExists(info.PID) {
		return true
	}
	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *DestLock) read() (*Info, error) {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (l *DestLock) write(info *Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: lock appeared during acquire", domain.ErrLockHeld)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
