// Package shutdown coordinates process termination: cleanup actions
// registered during bootstrap run once when the process receives SIGINT or
// SIGTERM. Actions are independent: they run concurrently, in no particular
// order, and a panicking action never prevents the others from running.
package shutdown

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Coordinator owns the registered cleanup actions for the process lifetime.
type Coordinator struct {
	logger *slog.Logger

	mu    sync.Mutex
	hooks []*hook

	triggerOnce sync.Once
}

type hook struct {
	name string
	fn   func()
	once sync.Once
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{logger: logger}
}

// Register adds a named cleanup action. The action runs at most once, must be
// self-contained, and must not assume anything about other actions.
func (c *Coordinator) Register(name string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, &hook{name: name, fn: fn})
}

// Wait blocks until a termination signal arrives, then runs all actions.
func (c *Coordinator) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	c.logger.Info("shutting down", "signal", sig.String())

	c.Trigger()
}

// Trigger runs every registered action that has not yet run, concurrently,
// and returns when all have finished.
func (c *Coordinator) Trigger() {
	c.triggerOnce.Do(c.runAll)
}

func (c *Coordinator) runAll() {
	c.mu.Lock()
	hooks := make([]*hook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range hooks {
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.once.Do(func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("shutdown action panicked", "name", h.name, "panic", r)
					}
				}()
				h.fn()
			})
		}()
	}
	wg.Wait()
}
