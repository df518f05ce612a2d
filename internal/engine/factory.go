package engine

import (
	"fmt"
	"sync"
)

// Factory creates a new, uninitialized engine instance.
type Factory func(env *Env) Engine

// Factories maps descriptor names to constructors, one table per category.
// It stands in for loading an implementation class by name: a descriptor
// whose name appears in no table cannot be resolved.
type Factories struct {
	mu     sync.RWMutex
	tables map[Category]map[string]Factory
}

// NewFactories creates an empty factory set.
func NewFactories() *Factories {
	return &Factories{tables: make(map[Category]map[string]Factory)}
}

// Register adds a factory for name under the given category.
// Panics if a factory with the same name is already registered, since that
// can only be a programming error in an engine package's init.
func (f *Factories) Register(cat Category, name string, fn Factory) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table, ok := f.tables[cat]
	if !ok {
		table = make(map[string]Factory)
		f.tables[cat] = table
	}
	if _, exists := table[name]; exists {
		panic(fmt.Sprintf("engine: %s factory %q already registered", cat, name))
	}
	table[name] = fn
}

// Lookup returns the factory registered for name under the given category.
func (f *Factories) Lookup(cat Category, name string) (Factory, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.tables[cat][name]
	return fn, ok
}

var builtins = NewFactories()

// RegisterFactory adds a factory to the process-wide built-in set. Engine
// packages call this from init; importing an engine package is what makes its
// name resolvable.
func RegisterFactory(cat Category, name string, fn Factory) {
	builtins.Register(cat, name, fn)
}

// Builtins returns the process-wide factory set.
func Builtins() *Factories {
	return builtins
}
