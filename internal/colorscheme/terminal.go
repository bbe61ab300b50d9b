package colorscheme

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/jmylchreest/themepref/internal/model"
)

// Terminal reports the terminal's background as the host appearance. The
// terminal is queried once, on first use, and never reports changes.
type Terminal struct {
	fallback model.Appearance
	isTTY    func() bool
	query    func() bool

	once    sync.Once
	current model.Appearance

	listeners listeners
}

// NewTerminal creates a Terminal signal. fallback is used when stdout is not
// a terminal.
func NewTerminal(fallback model.Appearance) *Terminal {
	if !fallback.Valid() {
		fallback = model.AppearanceLight
	}
	return &Terminal{
		fallback: fallback,
		isTTY: func() bool {
			fd := os.Stdout.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
		query: lipgloss.HasDarkBackground,
	}
}

// Name returns "terminal".
func (t *Terminal) Name() string {
	return SourceTerminal
}

// Detected reports whether stdout is attached to a terminal that can be
// queried.
func (t *Terminal) Detected() bool {
	return t.isTTY()
}

// Current returns the terminal background appearance.
func (t *Terminal) Current() model.Appearance {
	t.once.Do(func() {
		if !t.isTTY() {
			t.current = t.fallback
			return
		}
		if t.query() {
			t.current = model.AppearanceDark
		} else {
			t.current = model.AppearanceLight
		}
	})
	return t.current
}

// OnChange registers fn. Terminal never emits, but the registration is kept
// so Close behaves like the other sources.
func (t *Terminal) OnChange(fn func(model.Appearance)) func() {
	return t.listeners.add(fn)
}

// Close drops all listeners.
func (t *Terminal) Close() error {
	t.listeners.clear()
	return nil
}
