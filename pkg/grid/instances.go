package grid

import (
	"strings"
	"sync"
)

// InstanceRegistry records which container selectors are bound to a grid.
type InstanceRegistry struct {
	mu    sync.Mutex
	bound map[string]struct{}
}

// NewInstanceRegistry creates an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{bound: make(map[string]struct{})}
}

// Bind claims key. It returns false when key is already bound.
func (r *InstanceRegistry) Bind(key string) bool {
	key = strings.TrimSpace(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bound[key]; exists {
		return false
	}
	r.bound[key] = struct{}{}
	return true
}

// Release frees key so a new grid may bind it.
func (r *InstanceRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bound, strings.TrimSpace(key))
}

// Bound reports whether key is bound.
func (r *InstanceRegistry) Bound(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bound[strings.TrimSpace(key)]
	return ok
}

// Len reports the number of bound keys.
func (r *InstanceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bound)
}

// Reset releases every key. Intended for tests.
func (r *InstanceRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound = make(map[string]struct{})
}

var defaultInstances = NewInstanceRegistry()

// DefaultInstanceRegistry returns the process-wide instance registry.
func DefaultInstanceRegistry() *InstanceRegistry {
	return defaultInstances
}
