// Package props holds the small set of process-wide properties published
// during bootstrap: the validated base directory and the per-category default
// engine markers. A Store is owned by the orchestrator and passed by pointer
// to whatever needs to query it, so bootstrap stays re-entrant in tests.
package props

import "sync"

// Store is written only during the single-threaded bootstrap phase and read
// thereafter. The mutex exists for readers that outlive bootstrap, such as
// the admin server.
type Store struct {
	mu       sync.RWMutex
	baseDir  string
	defaults map[string]string
}

// NewStore creates an empty property store.
func NewStore() *Store {
	return &Store{defaults: make(map[string]string)}
}

// SetBaseDir publishes the validated base directory.
func (s *Store) SetBaseDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseDir = dir
}

// BaseDir returns the published base directory, empty before validation.
func (s *Store) BaseDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseDir
}

// SetDefaultEngine records name as the default engine for category. The
// association is write-once: the first call for a category wins and later
// calls are no-ops. Reports whether this call recorded the name.
func (s *Store) SetDefaultEngine(category, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defaults[category]; ok {
		return false
	}
	s.defaults[category] = name
	return true
}

// DefaultEngine returns the recorded default engine name for category.
func (s *Store) DefaultEngine(category string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.defaults[category]
	return name, ok
}

// Defaults returns a copy of all recorded default-engine markers.
func (s *Store) Defaults() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.defaults))
	for k, v := range s.defaults {
		out[k] = v
	}
	return out
}
