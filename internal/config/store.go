package config

import "sync"

// Snapshot is one immutable view of the live configuration. Request
// tasks capture a snapshot pointer and keep using it even after a
// reload swaps the live one.
type Snapshot struct {
	Config *Config
	Apps   []AppEntry
	Shell  ShellEntry
}

// Store holds the live snapshot behind a mutex. Every snapshot that was
// ever live is retained until shutdown so slices held by in-flight
// requests stay valid; the cost is a few kilobytes per hot reload.
type Store struct {
	mu      sync.Mutex
	current *Snapshot
	history []*Snapshot
}

// NewStore creates a store seeded with cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.Swap(cfg)
	return s
}

// Snapshot returns the live snapshot pointer.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Swap installs a freshly-loaded config as the live snapshot, retaining
// the previous one.
func (s *Store) Swap(cfg *Config) {
	snap := &Snapshot{
		Config: cfg,
		Apps:   append([]AppEntry(nil), cfg.Apps...),
		Shell:  cfg.Shell,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.history = append(s.history, s.current)
	}
	s.current = snap
}

// Generations returns how many snapshots have ever been live.
func (s *Store) Generations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if s.current != nil {
		n++
	}
	return n
}
