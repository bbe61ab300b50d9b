// Package switcher implements the light/dark theme switch control.
//
// A Switch holds no state of its own. Rendering is a function of the
// store's resolved appearance, and activation always lands on a concrete
// mode, never on system.
package switcher

import (
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/preference"
)

// Label is the accessible name of the control.
const Label = "Toggle theme"

// Icon names, matching the freedesktop symbolic icon set.
const (
	IconSun  = "weather-clear-symbolic"
	IconMoon = "weather-clear-night-symbolic"
)

// Controller is the part of the preference store the switch needs.
// *preference.Store satisfies it.
type Controller interface {
	ResolvedAppearance() (model.Appearance, error)
	SetMode(m model.Mode) error
	Subscribe(fn func(preference.Event)) (unsubscribe func())
}

// State is everything needed to draw the switch.
type State struct {
	Appearance model.Appearance
	// Icon shows the current appearance: sun for light, moon for dark.
	Icon string
	// Glyph is a text fallback for Icon.
	Glyph string
	Label string
	// Target is the mode activation will set.
	Target model.Mode
}

// Switch toggles a Controller between light and dark.
type Switch struct {
	ctrl Controller
}

// New binds a Switch to ctrl.
func New(ctrl Controller) *Switch {
	return &Switch{ctrl: ctrl}
}

// Activate flips the resolved appearance and returns the mode it set.
// Errors from the controller are returned unchanged.
func (s *Switch) Activate() (model.Mode, error) {
	current, err := s.ctrl.ResolvedAppearance()
	if err != nil {
		return "", err
	}

	target := current.Opposite().Mode()
	if err := s.ctrl.SetMode(target); err != nil {
		return "", err
	}
	return target, nil
}

// State returns the render state for the current resolved appearance.
func (s *Switch) State() (State, error) {
	current, err := s.ctrl.ResolvedAppearance()
	if err != nil {
		return State{}, err
	}
	return StateFor(current), nil
}

// StateFor returns the render state for a.
func StateFor(a model.Appearance) State {
	st := State{
		Appearance: a,
		Label:      Label,
		Target:     a.Opposite().Mode(),
	}
	if a == model.AppearanceDark {
		st.Icon = IconMoon
		st.Glyph = "☾"
	} else {
		st.Icon = IconSun
		st.Glyph = "☀"
	}
	return st
}

// Watch calls render after every store notification with the state read
// from the store at that moment, not from the event, so a round that
// arrives after a newer host change still draws the current appearance.
// Rounds in which the store cannot be read are skipped. The returned
// function stops watching.
func (s *Switch) Watch(render func(State)) (stop func()) {
	return s.ctrl.Subscribe(func(preference.Event) {
		st, err := s.State()
		if err != nil {
			return
		}
		render(st)
	})
}
