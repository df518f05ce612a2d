package engine_test

import (
	"errors"
	"testing"

	"github.com/lunedb/lune/internal/engine"
)

func newResolver(f *engine.Factories) *engine.Resolver {
	return &engine.Resolver{Factories: f, TransactionFallback: "mvt"}
}

func TestResolvePreRegisteredWins(t *testing.T) {
	f := engine.NewFactories()
	factoryCalls := 0
	f.Register(engine.CategoryStorage, "aose", func(env *engine.Env) engine.Engine {
		factoryCalls++
		return &stubEngine{name: "aose"}
	})

	reg := engine.NewRegistry()
	pre := &stubEngine{name: "aose"}
	reg.Register(pre)

	got, err := newResolver(f).Resolve(reg, engine.CategoryStorage, "aose")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != pre {
		t.Error("Resolve did not return the pre-registered instance")
	}
	if factoryCalls != 0 {
		t.Errorf("factory called %d times for a registry hit", factoryCalls)
	}
}

func TestResolveInstantiatesAndRegisters(t *testing.T) {
	f := engine.NewFactories()
	f.Register(engine.CategoryStorage, "aose", func(env *engine.Env) engine.Engine {
		return &stubEngine{name: "aose"}
	})

	reg := engine.NewRegistry()
	got, err := newResolver(f).Resolve(reg, engine.CategoryStorage, "aose")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	registered, ok := reg.Get("aose")
	if !ok || registered != got {
		t.Error("resolved engine was not registered under its name")
	}
}

func TestResolveUnknownStorageFailsHard(t *testing.T) {
	reg := engine.NewRegistry()
	_, err := newResolver(engine.NewFactories()).Resolve(reg, engine.CategoryStorage, "bogus.unknown.Engine")

	if !errors.Is(err, engine.ErrUnknownEngine) {
		t.Errorf("error = %v, want ErrUnknownEngine", err)
	}
	if reg.Len() != 0 {
		t.Error("failed resolution left something in the registry")
	}
}

func TestResolveTransactionFallsBackToRegistered(t *testing.T) {
	reg := engine.NewRegistry()
	def := &stubEngine{name: "mvt"}
	reg.Register(def)

	got, err := newResolver(engine.NewFactories()).Resolve(reg, engine.CategoryTransaction, "bogus.unknown.Engine")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want fallback success", err)
	}
	if got != def {
		t.Error("fallback did not return the default transaction engine")
	}
}

func TestResolveTransactionFallsBackToFactory(t *testing.T) {
	f := engine.NewFactories()
	f.Register(engine.CategoryTransaction, "mvt", func(env *engine.Env) engine.Engine {
		return &stubEngine{name: "mvt"}
	})

	reg := engine.NewRegistry()
	got, err := newResolver(f).Resolve(reg, engine.CategoryTransaction, "bogus.unknown.Engine")
	if err != nil {
		t.Fatalf("Resolve() error = %v, want fallback success", err)
	}
	if got.Name() != "mvt" {
		t.Errorf("fallback engine = %q, want mvt", got.Name())
	}
	if _, ok := reg.Get("mvt"); !ok {
		t.Error("fallback engine was not registered")
	}
}

func TestResolveTransactionFallbackAlsoFails(t *testing.T) {
	reg := engine.NewRegistry()
	_, err := newResolver(engine.NewFactories()).Resolve(reg, engine.CategoryTransaction, "bogus.unknown.Engine")

	if !errors.Is(err, engine.ErrUnknownEngine) {
		t.Errorf("error = %v, want the original ErrUnknownEngine", err)
	}
}

func TestResolveNoFallbackOutsideTransactionCategory(t *testing.T) {
	// A default is registered, but only the transaction category may use it.
	f := engine.NewFactories()
	f.Register(engine.CategoryQuery, "mvt", func(env *engine.Env) engine.Engine {
		return &stubEngine{name: "mvt"}
	})

	for _, cat := range []engine.Category{engine.CategoryStorage, engine.CategoryQuery, engine.CategoryProtocol} {
		reg := engine.NewRegistry()
		reg.Register(&stubEngine{name: "mvt"})

		if _, err := newResolver(f).Resolve(reg, cat, "bogus.unknown.Engine"); err == nil {
			t.Errorf("category %s fell back, want immediate failure", cat)
		}
	}
}
