package spawn

import (
	"sync"

	"github.com/l1jgo/horde/internal/core/ecs"
)

// Registry is the set of live entities a wave owns. It observes entity
// lifetimes without owning them: entities leave through their death
// notification or in bulk at wave teardown. Safe for concurrent use.
//
// A death may arrive before the handle is registered (the entity died inside
// the factory call). Deregistered handles are remembered until Clear so that
// a late Register of a dead handle is refused.
type Registry struct {
	mu      sync.Mutex
	handles map[ecs.EntityID]struct{}
	dead    map[ecs.EntityID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[ecs.EntityID]struct{}, 64),
		dead:    make(map[ecs.EntityID]struct{}),
	}
}

// Register adds h. It returns false if h is already present or has already
// been deregistered.
func (r *Registry) Register(h ecs.EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dead[h]; ok {
		return false
	}
	if _, ok := r.handles[h]; ok {
		return false
	}
	r.handles[h] = struct{}{}
	return true
}

// Deregister removes h and reports whether it was present. Removing an
// absent handle changes nothing observable.
func (r *Registry) Deregister(h ecs.EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead[h] = struct{}{}
	if _, ok := r.handles[h]; !ok {
		return false
	}
	delete(r.handles, h)
	return true
}

func (r *Registry) Contains(h ecs.EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[h]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Clear empties the set and returns what it held.
func (r *Registry) Clear() []ecs.EntityID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ecs.EntityID, 0, len(r.handles))
	for h := range r.handles {
		out = append(out, h)
	}
	r.handles = make(map[ecs.EntityID]struct{}, 64)
	r.dead = make(map[ecs.EntityID]struct{})
	return out
}
