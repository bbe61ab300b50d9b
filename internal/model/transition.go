package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Trigger describes what caused a mode transition.
type Trigger string

const (
	// TriggerUser is an explicit SetMode call (CLI, TUI, GTK switch).
	TriggerUser Trigger = "user"
	// TriggerSync is a change adopted from storage written by another process.
	TriggerSync Trigger = "sync"
)

// Transition records a single successful mode change.
type Transition struct {
	ID        string     `json:"id" yaml:"id"`
	From      Mode       `json:"from,omitempty" yaml:"from,omitempty"`
	To        Mode       `json:"to" yaml:"to"`
	Resolved  Appearance `json:"resolved" yaml:"resolved"`
	Trigger   Trigger    `json:"trigger" yaml:"trigger"`
	Source    string     `json:"source,omitempty" yaml:"source,omitempty"`
	Timestamp int64      `json:"timestamp" yaml:"timestamp"`
}

// Validation errors.
var (
	ErrEmptyTransitionID = errors.New("transition id cannot be empty")
	ErrInvalidTimestamp  = errors.New("timestamp must be greater than 0")
)

// NewTransition creates a Transition with a generated ULID and the current time.
func NewTransition(from, to Mode, resolved Appearance, trigger Trigger, source string) (*Transition, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Transition{
		ID:        id.String(),
		From:      from,
		To:        to,
		Resolved:  resolved,
		Trigger:   trigger,
		Source:    source,
		Timestamp: now.Unix(),
	}, nil
}

// Validate checks that the transition has all required fields.
func (t *Transition) Validate() error {
	if t.ID == "" {
		return ErrEmptyTransitionID
	}
	if !t.To.Valid() {
		return &InvalidModeError{Value: string(t.To)}
	}
	if t.From != "" && !t.From.Valid() {
		return &InvalidModeError{Value: string(t.From)}
	}
	if !t.Resolved.Valid() {
		return fmt.Errorf("invalid resolved appearance %q", t.Resolved)
	}
	if t.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	return nil
}

// Time returns the transition timestamp as a time.Time.
func (t *Transition) Time() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// ULIDTime extracts the millisecond timestamp embedded in the ID.
// Returns the zero time when the ID does not parse.
func (t *Transition) ULIDTime() time.Time {
	id, err := ulid.Parse(t.ID)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(id.Time())
}
