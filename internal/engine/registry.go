package engine

import (
	"sort"
	"sync"
)

// Registry holds the live engine instances of one category, keyed by each
// engine's own declared name. Registries are populated during the
// single-threaded bootstrap phase and are append-only: an engine, once
// registered, stays for the process lifetime. The RWMutex is for readers that
// outlive bootstrap, such as the admin server.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Get returns the registered engine with the given name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Register stores the engine under its own declared name. Callers follow a
// lookup-before-register pattern, so re-registering an equivalent instance is
// a no-op from their perspective.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Names returns the registered engine names, sorted for stable output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
