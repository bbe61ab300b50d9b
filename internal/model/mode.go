// Package model defines the core data structures for themepref.
package model

import (
	"fmt"
	"strings"
)

// Mode is the user's stored theme preference.
type Mode string

const (
	ModeLight  Mode = "light"
	ModeDark   Mode = "dark"
	ModeSystem Mode = "system"
)

// ValidModes returns all valid mode values.
func ValidModes() []Mode {
	return []Mode{ModeLight, ModeDark, ModeSystem}
}

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeLight, ModeDark, ModeSystem:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// Concrete reports whether the mode names an appearance directly.
func (m Mode) Concrete() bool {
	return m == ModeLight || m == ModeDark
}

// ParseMode converts a raw string into a Mode.
// Matching is exact: "Dark" or " dark" are rejected.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", &InvalidModeError{Value: s}
	}
	return m, nil
}

// InvalidModeError is returned when a value outside the known modes is used.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	names := make([]string, 0, 3)
	for _, m := range ValidModes() {
		names = append(names, string(m))
	}
	return fmt.Sprintf("invalid theme mode %q, must be one of: %s", e.Value, strings.Join(names, ", "))
}

// Appearance is the concrete look applied to the UI. It is never "system".
type Appearance string

const (
	AppearanceLight Appearance = "light"
	AppearanceDark  Appearance = "dark"
)

// Valid reports whether a is a concrete appearance.
func (a Appearance) Valid() bool {
	return a == AppearanceLight || a == AppearanceDark
}

// String implements fmt.Stringer.
func (a Appearance) String() string {
	return string(a)
}

// Opposite returns the other concrete appearance.
func (a Appearance) Opposite() Appearance {
	if a == AppearanceDark {
		return AppearanceLight
	}
	return AppearanceDark
}

// Mode returns the concrete mode that pins this appearance.
func (a Appearance) Mode() Mode {
	if a == AppearanceDark {
		return ModeDark
	}
	return ModeLight
}

// ParseAppearance converts a raw string into an Appearance.
func ParseAppearance(s string) (Appearance, error) {
	a := Appearance(s)
	if !a.Valid() {
		return "", fmt.Errorf("invalid appearance %q, must be light or dark", s)
	}
	return a, nil
}

// Resolve derives the appearance for mode m, consulting host only for ModeSystem.
func Resolve(m Mode, host Appearance) Appearance {
	switch m {
	case ModeDark:
		return AppearanceDark
	case ModeLight:
		return AppearanceLight
	}
	if host == AppearanceDark {
		return AppearanceDark
	}
	return AppearanceLight
}
