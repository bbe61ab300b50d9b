// Package session wires configuration, storage, the host signal and the
// history journal into an initialized preference store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/config"
	"github.com/jmylchreest/themepref/internal/history"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/preference"
)

// Options configures Open.
type Options struct {
	Config *config.Config // nil = defaults

	// StoragePath overrides the configured storage path.
	StoragePath string

	// Signal overrides host signal detection.
	Signal colorscheme.Signal

	// Source is recorded on every transition ("cli", "tui", "themeprefd").
	Source string

	Logger *slog.Logger
}

// Session owns the collaborators of one preference store.
type Session struct {
	Config  *config.Config
	Backend kvstore.Backend
	Signal  colorscheme.Signal
	Journal *history.Journal // nil when history is disabled or unavailable
	Store   *preference.Store

	backendName string
	logger      *slog.Logger
}

// Open builds and initializes a store. Storage, journal and signal failures
// are logged and degrade the session; only an invalid configuration fails.
func Open(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Session{
		Config:      cfg,
		backendName: cfg.Storage.Backend,
		logger:      logger,
	}

	path := opts.StoragePath
	if path == "" {
		path = cfg.StoragePath()
	}
	backend, err := kvstore.Open(cfg.Storage.Backend, path)
	if err != nil {
		// The store logs the first failed read and continues in memory.
		backend = kvstore.Unavailable(path, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err))
	}
	s.Backend = backend

	s.Signal = opts.Signal
	if s.Signal == nil {
		s.Signal, err = colorscheme.Detect(ctx, cfg.Signal.Source, cfg.Fallback(), logger)
		if err != nil {
			logger.Warn("color scheme source unavailable, using fallback",
				"source", cfg.Signal.Source, "fallback", cfg.Fallback(), "error", err)
			s.Signal = colorscheme.NewStatic(cfg.Fallback())
		}
	}

	var recorder preference.Recorder
	if cfg.History.Enabled {
		journal, err := history.Open(cfg.JournalPath(), logger)
		if err != nil {
			logger.Warn("theme history unavailable", "path", cfg.JournalPath(), "error", err)
		} else {
			s.Journal = journal
			recorder = journal
		}
	}

	s.Store = preference.New(preference.Options{
		Storage:  backend,
		Signal:   s.Signal,
		Recorder: recorder,
		Logger:   logger,
		Source:   opts.Source,
	})

	if err := s.Store.Initialize(cfg.DefaultMode(), cfg.Preference.StorageKey); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize theme preference: %w", err)
	}

	return s, nil
}

// Watch starts a watcher that calls onChange when another process writes the
// backend. It returns nil for in-memory backends.
func (s *Session) Watch(onChange func()) (*kvstore.FileWatcher, error) {
	if s.Backend.Path() == "" {
		return nil, nil
	}

	fw, err := kvstore.NewFileWatcher(s.Backend.Path(), onChange, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage watcher: %w", err)
	}
	if d := s.Config.Storage.WatchDelay.Duration(); d > 0 {
		fw.SetDebounce(d)
	}
	if err := fw.Start(); err != nil {
		_ = fw.Stop()
		return nil, fmt.Errorf("failed to start storage watcher: %w", err)
	}
	return fw, nil
}

// LastChange returns the time of the most recent journaled transition.
func (s *Session) LastChange() (time.Time, bool) {
	if s.Journal == nil {
		return time.Time{}, false
	}
	ts, err := s.Journal.Load()
	if err != nil {
		s.logger.Debug("failed to read theme history", "error", err)
		return time.Time{}, false
	}
	last, ok := history.Last(ts)
	if !ok {
		return time.Time{}, false
	}
	return last.Time(), true
}

// Status is a point-in-time summary of the session.
type Status struct {
	Mode       model.Mode       `json:"mode" yaml:"mode"`
	Appearance model.Appearance `json:"appearance" yaml:"appearance"`
	Signal     string           `json:"signal" yaml:"signal"`
	Host       model.Appearance `json:"host" yaml:"host"`
	Backend    string           `json:"backend" yaml:"backend"`
	Path       string           `json:"path,omitempty" yaml:"path,omitempty"`
	StorageKey string           `json:"storage_key" yaml:"storage_key"`
	Degraded   bool             `json:"degraded" yaml:"degraded"`
	LastChange time.Time        `json:"last_change,omitzero" yaml:"last_change,omitempty"`
}

// Status reads the current state of the store and its collaborators.
func (s *Session) Status() (Status, error) {
	mode, err := s.Store.Mode()
	if err != nil {
		return Status{}, err
	}
	appearance, err := s.Store.ResolvedAppearance()
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Mode:       mode,
		Appearance: appearance,
		Signal:     s.Signal.Name(),
		Host:       s.Signal.Current(),
		Backend:    s.backendName,
		Path:       s.Backend.Path(),
		StorageKey: s.Store.StorageKey(),
		Degraded:   s.Store.Degraded(),
	}
	if t, ok := s.LastChange(); ok {
		st.LastChange = t
	}
	return st, nil
}

// Close releases every collaborator. The store is closed first so no
// callbacks run against closed resources.
func (s *Session) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.Signal != nil {
		errs = append(errs, s.Signal.Close())
	}
	if s.Journal != nil {
		errs = append(errs, s.Journal.Close())
	}
	if s.Backend != nil {
		errs = append(errs, s.Backend.Close())
	}
	return errors.Join(errs...)
}
