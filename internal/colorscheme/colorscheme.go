// Package colorscheme detects the host's preferred color scheme and reports
// changes to it.
package colorscheme

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/themepref/internal/model"
)

// Source names accepted by Detect.
const (
	SourceAuto     = "auto"
	SourcePortal   = "portal"
	SourceTerminal = "terminal"
	SourceStatic   = "static"
)

// ValidSources returns all supported source names.
func ValidSources() []string {
	return []string{SourceAuto, SourcePortal, SourceTerminal, SourceStatic}
}

// Signal is a host color-scheme source.
type Signal interface {
	// Name identifies the source for status output.
	Name() string
	// Current returns the host's preferred appearance.
	Current() model.Appearance
	// OnChange registers fn and returns a function that removes it.
	OnChange(fn func(model.Appearance)) (cancel func())
	// Close releases any connection held by the source.
	Close() error
}

// Detect returns the signal for source. SourceAuto tries the desktop portal,
// then the terminal, then falls back to a static signal.
func Detect(ctx context.Context, source string, fallback model.Appearance, logger *slog.Logger) (Signal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !fallback.Valid() {
		fallback = model.AppearanceLight
	}

	switch source {
	case SourceStatic:
		return NewStatic(fallback), nil

	case SourceTerminal:
		return NewTerminal(fallback), nil

	case SourcePortal:
		p := NewPortal(fallback, logger)
		if err := p.Start(ctx); err != nil {
			return nil, err
		}
		return p, nil

	case SourceAuto, "":
		p := NewPortal(fallback, logger)
		if err := p.Start(ctx); err == nil {
			return p, nil
		} else {
			logger.Debug("desktop portal unavailable, trying terminal", "error", err)
		}
		if t := NewTerminal(fallback); t.Detected() {
			return t, nil
		}
		logger.Debug("no color scheme source detected, using fallback", "appearance", fallback)
		return NewStatic(fallback), nil

	default:
		return nil, fmt.Errorf("unknown color scheme source %q, must be one of: %v", source, ValidSources())
	}
}

// listeners fans a change out to registered callbacks in registration order.
type listeners struct {
	mu     sync.Mutex
	nextID uint64
	fns    []listener
}

type listener struct {
	id uint64
	fn func(model.Appearance)
}

func (l *listeners) add(fn func(model.Appearance)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.fns = append(l.fns, listener{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.fns = slices.DeleteFunc(l.fns, func(x listener) bool { return x.id == id })
		})
	}
}

func (l *listeners) emit(a model.Appearance) {
	l.mu.Lock()
	fns := slices.Clone(l.fns)
	l.mu.Unlock()

	for _, x := range fns {
		x.fn(a)
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *listeners) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = nil
}
