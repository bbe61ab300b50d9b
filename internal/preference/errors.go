package preference

import "github.com/jmylchreest/themepref/internal/model"

// Errors
var (
	ErrNotInitialized     = prefError("theme preference store is not initialized")
	ErrAlreadyInitialized = prefError("theme preference store is already initialized")
	ErrClosed             = prefError("theme preference store is closed")
	ErrEmptyStorageKey    = prefError("storage key cannot be empty")
)

type prefError string

func (e prefError) Error() string {
	return string(e)
}

// InvalidModeError is returned when a value outside light/dark/system is used.
type InvalidModeError = model.InvalidModeError
