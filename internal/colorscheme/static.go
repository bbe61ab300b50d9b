package colorscheme

import (
	"sync"

	"github.com/jmylchreest/themepref/internal/model"
)

// Static is a host signal with a fixed value that changes only through Set.
type Static struct {
	mu        sync.RWMutex
	current   model.Appearance
	listeners listeners
}

// NewStatic creates a Static signal reporting a.
func NewStatic(a model.Appearance) *Static {
	if !a.Valid() {
		a = model.AppearanceLight
	}
	return &Static{current: a}
}

// Name returns "static".
func (s *Static) Name() string {
	return SourceStatic
}

// Current returns the configured appearance.
func (s *Static) Current() model.Appearance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set changes the appearance and notifies listeners when it differs.
func (s *Static) Set(a model.Appearance) {
	s.mu.Lock()
	if !a.Valid() || a == s.current {
		s.mu.Unlock()
		return
	}
	s.current = a
	s.mu.Unlock()

	s.listeners.emit(a)
}

// OnChange registers fn for appearance changes.
func (s *Static) OnChange(fn func(model.Appearance)) func() {
	return s.listeners.add(fn)
}

// Listeners returns the number of registered listeners.
func (s *Static) Listeners() int {
	return s.listeners.len()
}

// Close drops all listeners.
func (s *Static) Close() error {
	s.listeners.clear()
	return nil
}
