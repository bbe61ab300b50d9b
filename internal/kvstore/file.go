package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileSchemaVersion is the current preferences file schema version.
const FileSchemaVersion = 1

// ErrCorruptFile is returned when the preferences file cannot be parsed.
var ErrCorruptFile = errors.New("preferences file is corrupt")

// fileDocument is the on-disk TOML layout.
type fileDocument struct {
	SchemaVersion int               `toml:"schema_version"`
	UpdatedAt     int64             `toml:"updated_at"`
	Values        map[string]string `toml:"values"`
}

// FileStore persists values in a small TOML document.
// The file is re-read on every Get so that writes from other processes are
// visible, and replaced atomically on every Set.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates a FileStore at path, creating the parent directory.
// The file itself is created lazily on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("preferences file path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return &FileStore{path: path}, nil
}

// Get returns the value stored under key.
func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", false, ErrStoreClosed
	}

	doc, err := f.readLocked()
	if err != nil {
		return "", false, err
	}
	if doc == nil {
		return "", false, nil
	}

	v, ok := doc.Values[key]
	return v, ok, nil
}

// Set stores value under key and replaces the file atomically.
// A corrupt file is moved aside and replaced with a fresh document.
func (f *FileStore) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}

	doc, err := f.readLocked()
	if err != nil {
		if !errors.Is(err, ErrCorruptFile) {
			return err
		}
		if err := f.quarantineLocked(); err != nil {
			return err
		}
		doc = nil
	}
	if doc == nil {
		doc = &fileDocument{Values: make(map[string]string)}
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}

	doc.SchemaVersion = FileSchemaVersion
	doc.UpdatedAt = time.Now().Unix()
	doc.Values[key] = value

	return f.writeLocked(doc)
}

// Path returns the preferences file path.
func (f *FileStore) Path() string {
	return f.path
}

// Close marks the store closed. There are no open handles between calls.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// readLocked returns nil, nil when the file does not exist yet.
func (f *FileStore) readLocked() (*fileDocument, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var doc fileDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, f.path, err)
	}

	if doc.SchemaVersion > FileSchemaVersion {
		return nil, fmt.Errorf("unsupported preferences schema version %d (max: %d)",
			doc.SchemaVersion, FileSchemaVersion)
	}

	return &doc, nil
}

func (f *FileStore) writeLocked(doc *fileDocument) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	// Write atomically via temp file
	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

// quarantineLocked moves a corrupt file aside so it can be inspected later.
func (f *FileStore) quarantineLocked() error {
	backupPath := f.path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(f.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to backup corrupted file: %w", err)
	}
	return nil
}
