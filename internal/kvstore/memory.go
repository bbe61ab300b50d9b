package kvstore

import (
	"maps"
	"sync"
)

// MemoryStore keeps values in a map. Failures can be injected to exercise
// the degraded path of callers.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	readErr  error
	writeErr error
	reads    int
	writes   int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value for key.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return "", false, m.readErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	if key == "" {
		return ErrEmptyKey
	}
	m.data[key] = value
	return nil
}

// FailReads makes every subsequent Get return err (nil restores normal reads).
func (m *MemoryStore) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes every subsequent Set return err (nil restores normal writes).
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Counts returns how many Get and Set calls were made.
func (m *MemoryStore) Counts() (reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads, m.writes
}

// Snapshot returns a copy of the stored data.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data)
}

// Path returns "" since nothing is written to disk.
func (m *MemoryStore) Path() string {
	return ""
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
