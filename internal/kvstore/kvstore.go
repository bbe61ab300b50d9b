// Package kvstore provides the persistent key-value backends that remember
// the theme preference across sessions.
package kvstore

import (
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ValidBackends returns all supported backend names.
func ValidBackends() []string {
	return []string{BackendFile, BackendSQLite, BackendMemory}
}

// Backend is a key-value store with a lifecycle.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores value under key, durably before returning.
	Set(key, value string) error

	// Path returns the on-disk location, or "" for in-memory backends.
	Path() string

	// Close releases handles and resources.
	Close() error
}

// Open creates the backend named by backend at path.
func Open(backend, path string) (Backend, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q, must be one of: %v", backend, ValidBackends())
	}
}

// Errors
var (
	ErrStoreClosed = kvError("key-value store is closed")
	ErrEmptyKey    = kvError("key cannot be empty")
)

type kvError string

func (e kvError) Error() string {
	return string(e)
}

// Unavailable returns a Backend whose reads and writes all fail with err,
// for use in place of a backend that could not be opened.
func Unavailable(path string, err error) Backend {
	return unavailable{path: path, err: err}
}

type unavailable struct {
	path string
	err  error
}

func (u unavailable) Get(string) (string, bool, error) { return "", false, u.err }
func (u unavailable) Set(string, string) error         { return u.err }
func (u unavailable) Path() string                     { return u.path }
func (u unavailable) Close() error                     { return nil }
