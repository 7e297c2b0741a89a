package unit

import (
	"fmt"
	"sync"
)

// Registry remembers every unit created by the factories sharing it and
// hands out unique ids.
type Registry struct {
	mu      sync.RWMutex
	units   []*Unit
	byID    map[string]*Unit
	lastUID int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]*Unit),
		lastUID: -1,
	}
}

// GetByID returns the unit with the given id.
func (r *Registry) GetByID(id string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	return u, ok
}

// Units returns every registered unit in creation order.
func (r *Registry) Units() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Unit, len(r.units))
	copy(out, r.units)
	return out
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// add assigns u its id and registers it. An empty requested id becomes
// "tm_<n>"; a taken one gets the first free "_1", "_2", ... suffix.
func (r *Registry) add(u *Unit, requested string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := requested
	if id == "" {
		r.lastUID++
		id = fmt.Sprintf("tm_%d", r.lastUID)
	} else {
		for n := 1; r.byID[id] != nil; n++ {
			id = fmt.Sprintf("%s_%d", requested, n)
		}
	}

	u.id = id
	r.units = append(r.units, u)
	r.byID[id] = u
}
