package scheduler

import "sync"

// Reservations enforces at most one in-flight writer per destination
// path during apply, so two actions can never race on the same final
// file.
type Reservations struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewReservations creates an empty reservation set
func NewReservations() *Reservations {
	return &Reservations{paths: make(map[string]struct{})}
}

// Acquire reserves the given paths. It returns false without reserving
// anything if any path is already held.
func (r *Reservations) Acquire(paths ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, held := r.paths[p]; held {
			return false
		}
	}
	for _, p := range paths {
		if p != "" {
			r.paths[p] = struct{}{}
		}
	}
	return true
}

// Release frees previously acquired paths
func (r *Reservations) Release(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range paths {
		delete(r.paths, p)
	}
}
