package client

import "sync"

// State holds what a screen currently shows.
//
// Loads are tagged with a generation from Begin. Only the newest load may
// commit, so a slow response never overwrites a newer one, and a failed load
// records its error while leaving the last good value in place.
type State[T any] struct {
	mu     sync.Mutex
	gen    uint64
	value  T
	loaded bool
	err    error
}

// Begin starts a load and returns its generation.
func (s *State[T]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// Commit applies a finished load. It reports false when a newer load has
// started since gen was issued.
func (s *State[T]) Commit(gen uint64, value T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	if err != nil {
		s.err = err
		return true
	}
	s.value = value
	s.loaded = true
	s.err = nil
	return true
}

// Snapshot returns the current value, whether any load has succeeded, and
// the error of the latest load.
func (s *State[T]) Snapshot() (value T, loaded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded, s.err
}
