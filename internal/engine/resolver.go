package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownEngine is returned when a descriptor names an engine that is
// neither registered nor constructible from a factory table.
var ErrUnknownEngine = errors.New("unknown engine")

// Resolver turns a descriptor name into a live engine: registry lookup first
// (pre-registered engines win), then factory instantiation plus registration
// on a miss.
//
// TransactionFallback names the engine tried when a transaction descriptor
// fails to resolve. The transaction category is the only one with a fallback:
// an always-available in-process transaction engine exists, so a
// misconfigured custom one must not keep the server from starting. No such
// safe default exists for the other categories, which fail hard.
type Resolver struct {
	Factories           *Factories
	Env                 *Env
	TransactionFallback string
}

// Resolve returns the engine for name in the given category, instantiating
// and registering it if needed.
func (r *Resolver) Resolve(reg *Registry, cat Category, name string) (Engine, error) {
	if e, ok := reg.Get(name); ok {
		return e, nil
	}

	e, err := r.instantiate(reg, cat, name)
	if err == nil {
		return e, nil
	}

	if cat == CategoryTransaction && r.TransactionFallback != "" && r.TransactionFallback != name {
		if fb, ok := reg.Get(r.TransactionFallback); ok {
			return fb, nil
		}
		if fb, ferr := r.instantiate(reg, cat, r.TransactionFallback); ferr == nil {
			return fb, nil
		}
		// Fallback failed too; report the original failure.
	}

	return nil, err
}

func (r *Resolver) instantiate(reg *Registry, cat Category, name string) (Engine, error) {
	fn, ok := r.Factories.Lookup(cat, name)
	if !ok {
		return nil, fmt.Errorf("%s engine %q: %w", cat, name, ErrUnknownEngine)
	}

	e := fn(r.Env)
	reg.Register(e)
	return e, nil
}
