package config

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "50ms", "1s", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '50ms', '1s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// SwitchConfig places the desktop switch window.
type SwitchConfig struct {
	Position string `toml:"position"` // "top-right", "top-left", etc.
	OffsetX  int    `toml:"offset_x"` // Pixels from screen edge
	OffsetY  int    `toml:"offset_y"` // Pixels from screen edge
}

// Position represents a switch position on screen.
type Position string

const (
	PositionTopLeft      Position = "top-left"
	PositionTopRight     Position = "top-right"
	PositionTopCenter    Position = "top-center"
	PositionBottomLeft   Position = "bottom-left"
	PositionBottomRight  Position = "bottom-right"
	PositionBottomCenter Position = "bottom-center"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionTopCenter,
		PositionBottomLeft,
		PositionBottomRight,
		PositionBottomCenter,
	}
}

// Validate checks the position and offsets.
func (s SwitchConfig) Validate() error {
	if !slices.Contains(ValidPositions(), Position(s.Position)) {
		return fmt.Errorf("invalid position %q, must be one of: %v", s.Position, ValidPositions())
	}
	if s.OffsetX < 0 || s.OffsetX > 1000 {
		return fmt.Errorf("offset_x must be between 0 and 1000, got %d", s.OffsetX)
	}
	if s.OffsetY < 0 || s.OffsetY > 1000 {
		return fmt.Errorf("offset_y must be between 0 and 1000, got %d", s.OffsetY)
	}
	return nil
}
