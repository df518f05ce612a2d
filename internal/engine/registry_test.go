package engine_test

import (
	"testing"

	"github.com/lunedb/lune/internal/engine"
)

// stubEngine is a minimal Engine for registry and resolver tests.
type stubEngine struct {
	name    string
	inits   int
	initErr error
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Init(params map[string]string) error {
	s.inits++
	return s.initErr
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := engine.NewRegistry()

	if _, ok := reg.Get("aose"); ok {
		t.Error("Get on empty registry reported a hit")
	}

	e := &stubEngine{name: "aose"}
	reg.Register(e)

	got, ok := reg.Get("aose")
	if !ok {
		t.Fatal("Get(aose) missed after Register")
	}
	if got != e {
		t.Error("Get returned a different instance")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := engine.NewRegistry()
	reg.Register(&stubEngine{name: "memse"})
	reg.Register(&stubEngine{name: "aose"})

	names := reg.Names()
	if len(names) != 2 || names[0] != "aose" || names[1] != "memse" {
		t.Errorf("Names() = %v, want [aose memse]", names)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
}

func TestFactoriesRegisterAndLookup(t *testing.T) {
	f := engine.NewFactories()
	f.Register(engine.CategoryStorage, "aose", func(env *engine.Env) engine.Engine {
		return &stubEngine{name: "aose"}
	})

	if _, ok := f.Lookup(engine.CategoryStorage, "missing"); ok {
		t.Error("Lookup reported a factory that was never registered")
	}
	if _, ok := f.Lookup(engine.CategoryTransaction, "aose"); ok {
		t.Error("Lookup crossed categories")
	}

	fn, ok := f.Lookup(engine.CategoryStorage, "aose")
	if !ok {
		t.Fatal("Lookup missed a registered factory")
	}
	if got := fn(nil).Name(); got != "aose" {
		t.Errorf("factory produced engine %q, want aose", got)
	}
}

func TestFactoriesDuplicatePanics(t *testing.T) {
	f := engine.NewFactories()
	fn := func(env *engine.Env) engine.Engine { return &stubEngine{name: "aose"} }
	f.Register(engine.CategoryStorage, "aose", fn)

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	f.Register(engine.CategoryStorage, "aose", fn)
}
