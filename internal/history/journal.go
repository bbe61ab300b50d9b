// Package history keeps an append-only JSONL journal of theme mode
// transitions.
package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/themepref/internal/model"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// maxLineSize bounds a single journal line.
const maxLineSize = 64 * 1024

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	ThemeprefSchemaVersion int   `json:"themepref_schema_version"`
	CreatedAt              int64 `json:"created_at"`
}

// Journal stores transitions one JSON object per line.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
	closed bool
}

// Open opens or creates the journal at path, writing a schema header to a
// new file.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := &Journal{
		path:   path,
		file:   file,
		logger: logger,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := j.writeHeaderLocked(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) writeHeaderLocked() error {
	data, err := json.Marshal(schemaHeader{
		ThemeprefSchemaVersion: SchemaVersion,
		CreatedAt:              time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Append writes t to the end of the journal.
func (j *Journal) Append(t model.Transition) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid transition: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", j.path, err)
	}
	return j.file.Sync()
}

// Record implements preference.Recorder.
func (j *Journal) Record(t model.Transition) error {
	return j.Append(t)
}

// Load returns every transition in file order. Malformed lines are skipped.
func (j *Journal) Load() ([]model.Transition, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrJournalClosed
	}
	return j.loadLocked()
}

func (j *Journal) loadLocked() ([]model.Transition, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", j.path, err)
	}
	defer f.Close()

	return decode(f, j.logger)
}

// decode reads a journal stream. A header is only accepted on the first
// non-empty line.
func decode(r io.Reader, logger *slog.Logger) ([]model.Transition, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	var transitions []model.Transition
	lineNum := 0
	skipped := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineNum++

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.ThemeprefSchemaVersion > 0 {
				if header.ThemeprefSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported journal schema version %d (max: %d)",
						header.ThemeprefSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var t model.Transition
		if err := json.Unmarshal(line, &t); err != nil || t.Validate() != nil {
			skipped++
			continue
		}
		transitions = append(transitions, t)
	}

	if skipped > 0 {
		logger.Warn("skipped malformed journal lines", "count", skipped)
	}
	if err := scanner.Err(); err != nil {
		return transitions, fmt.Errorf("error reading journal: %w", err)
	}
	return transitions, nil
}

// Prune rewrites the journal keeping only the newest keep transitions. A
// .bak copy is held until the rewrite succeeds. It returns the number of
// transitions removed.
func (j *Journal) Prune(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be >= 0, got %d", keep)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, ErrJournalClosed
	}

	all, err := j.loadLocked()
	if err != nil {
		return 0, err
	}
	if len(all) <= keep {
		return 0, nil
	}

	kept := all[len(all)-keep:]
	if err := j.rewriteLocked(kept); err != nil {
		return 0, err
	}

	removed := len(all) - len(kept)
	j.logger.Debug("pruned theme history", "removed", removed, "kept", len(kept))
	return removed, nil
}

// Clear removes every transition, keeping the header.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}
	return j.rewriteLocked(nil)
}

func (j *Journal) rewriteLocked(ts []model.Transition) error {
	if err := j.file.Close(); err != nil {
		return err
	}
	j.file = nil

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return j.reopenLocked(fmt.Errorf("failed to create backup: %w", err))
	}

	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, j.path)
		return j.reopenLocked(fmt.Errorf("failed to create new journal: %w", err))
	}
	j.file = file

	if err := j.writeHeaderLocked(); err != nil {
		return err
	}
	for _, t := range ts {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := j.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// reopenLocked restores the append handle after a failed rewrite and returns cause.
func (j *Journal) reopenLocked(cause error) error {
	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		j.closed = true
		return errors.Join(cause, err)
	}
	j.file = file
	return cause
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}
