// Package preference owns the user's theme preference.
//
// A Store is constructed once per process and handed to every view that
// renders the theme. It is the single source of truth for the current Mode:
// it reads the persisted value on Initialize, writes every SetMode through
// to storage and pushes change Events to subscribers synchronously, in the
// order they subscribed. When the mode is "system" the store also relays
// changes of the host color-scheme signal.
//
// Storage failures never reach callers. The first failure is logged and the
// store carries on in memory for the rest of its lifetime.
package preference
