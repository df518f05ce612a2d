// Package engine defines the pluggable-engine contract: the Engine interface
// every capability category implements, the per-category registries of live
// instances, the factory tables engines register themselves in, and the
// resolver that turns a descriptor name into a running engine.
package engine

import (
	"log/slog"

	"github.com/lunedb/lune/internal/props"
)

// Engine is the contract shared by all pluggable engines. Name is the
// engine's declared identity within its category; Init is called exactly once
// per process, during bootstrap, with the descriptor's parameters after
// derived defaults have been injected.
type Engine interface {
	Name() string
	Init(params map[string]string) error
}

// Category identifies one of the four engine capability categories. The
// declaration order below is the bootstrap initialization order.
type Category string

const (
	CategoryStorage     Category = "storage"
	CategoryTransaction Category = "transaction"
	CategoryQuery       Category = "sql"
	CategoryProtocol    Category = "protocol_server"
)

// Categories returns all categories in bootstrap initialization order.
func Categories() []Category {
	return []Category{CategoryStorage, CategoryTransaction, CategoryQuery, CategoryProtocol}
}

// Env carries the process-wide collaborators handed to engine factories.
// Engines keep the pointer and read from it lazily; registries and properties
// are fully populated only once bootstrap has passed their category.
type Env struct {
	Logger     *slog.Logger
	Props      *props.Store
	Registries map[Category]*Registry
}

// Registry returns the registry for a category, or nil if the Env carries none.
func (e *Env) Registry(cat Category) *Registry {
	if e == nil || e.Registries == nil {
		return nil
	}
	return e.Registries[cat]
}
