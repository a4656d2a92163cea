package meta

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps type names to types.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates a registry holding types.
func NewRegistry(types ...*Type) *Registry {
	r := &Registry{types: make(map[string]*Type)}
	for _, t := range types {
		r.types[t.Name] = t
	}
	return r
}

// Register adds t. Registering a second type with the same name is an error.
func (r *Registry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("type %s already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// Lookup returns the named type.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
