package scheduler

import "sync"

// registry is the process-wide, append-only list of schedulers. An entry's
// index is its scheduler's id; entries are never removed or reassigned.
var registry struct {
	mu   sync.RWMutex
	list []*Scheduler
}

// register appends s and returns its index.
func register(s *Scheduler) int {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	id := len(registry.list)
	registry.list = append(registry.list, s)
	return id
}

// GetByID returns the scheduler registered under id.
// Returns false if id is out of range.
func GetByID(id int) (*Scheduler, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if id < 0 || id >= len(registry.list) {
		return nil, false
	}
	return registry.list[id], true
}

// Count returns the number of schedulers created so far.
func Count() int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.list)
}
