package preference

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/themepref/internal/model"
)

// Storage is the persistent key-value collaborator.
type Storage interface {
	// Get returns the value stored under key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key.
	Set(key, value string) error
}

// Signal is the host color-scheme collaborator.
type Signal interface {
	// Current returns the host's preferred appearance right now.
	Current() model.Appearance
	// OnChange registers a listener and returns a function that removes it.
	OnChange(fn func(model.Appearance)) (cancel func())
}

// Recorder receives every adopted mode transition.
type Recorder interface {
	Record(t model.Transition) error
}

// Cause identifies why subscribers are being notified.
type Cause int

const (
	// CauseSet is a successful SetMode call.
	CauseSet Cause = iota
	// CauseSignal is a host color-scheme change while the mode is system.
	CauseSignal
	// CauseSync is a value written to storage by another process.
	CauseSync
)

// String returns a short name for the cause.
func (c Cause) String() string {
	switch c {
	case CauseSet:
		return "set"
	case CauseSignal:
		return "signal"
	case CauseSync:
		return "sync"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every change.
type Event struct {
	Mode       model.Mode
	Previous   model.Mode
	Appearance model.Appearance
	Cause      Cause
}

// Options configures a Store.
type Options struct {
	Storage  Storage      // nil = memory only
	Signal   Signal       // nil = host is always light
	Recorder Recorder     // optional transition journal
	Logger   *slog.Logger // nil = slog.Default()
	Source   string       // recorded on transitions, e.g. "cli", "tui"
}

type lifecycle int

const (
	stateUninitialized lifecycle = iota
	stateReady
	stateClosed
)

type subscription struct {
	id uint64
	fn func(Event)
}

// pendingEvent is a change waiting to be recorded and delivered.
type pendingEvent struct {
	event   Event
	trigger model.Trigger
	record  bool
}

// Store is the single source of truth for the theme mode.
type Store struct {
	mu       sync.Mutex
	storage  Storage
	signal   Signal
	recorder Recorder
	logger   *slog.Logger
	source   string

	state    lifecycle
	mode     model.Mode
	key      string
	degraded bool

	cancelSignal func()

	subscribers []subscription
	nextID      uint64

	// Changes are queued under mu in the order they were applied and
	// delivered by whichever goroutine finds the queue idle.
	pending    []pendingEvent
	delivering bool
}

// New creates an uninitialized Store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		storage:  opts.Storage,
		signal:   opts.Signal,
		recorder: opts.Recorder,
		logger:   logger,
		source:   opts.Source,
	}
}

// Initialize loads the persisted mode for storageKey, falling back to
// defaultMode when nothing valid is stored or storage cannot be read.
// It may only succeed once per Store.
func (s *Store) Initialize(defaultMode model.Mode, storageKey string) error {
	if !defaultMode.Valid() {
		return &InvalidModeError{Value: string(defaultMode)}
	}
	if storageKey == "" {
		return ErrEmptyStorageKey
	}

	s.mu.Lock()
	switch s.state {
	case stateReady:
		s.mu.Unlock()
		return ErrAlreadyInitialized
	case stateClosed:
		s.mu.Unlock()
		return ErrClosed
	}

	s.key = storageKey
	s.mode = defaultMode

	if s.storage != nil {
		value, ok, err := s.storage.Get(storageKey)
		switch {
		case err != nil:
			s.storageFailedLocked("read", err)
		case ok:
			if m, err := model.ParseMode(value); err == nil {
				s.mode = m
			} else {
				s.logger.Debug("ignoring invalid stored theme mode", "key", storageKey, "value", value)
			}
		}
	}

	s.state = stateReady
	mode := s.mode
	s.mu.Unlock()

	if s.signal != nil {
		cancel := s.signal.OnChange(s.handleSignal)
		s.mu.Lock()
		if s.state == stateClosed {
			// Close ran while the listener was being registered.
			s.mu.Unlock()
			cancel()
			return ErrClosed
		}
		s.cancelSignal = cancel
		s.mu.Unlock()
	}

	s.logger.Debug("theme preference initialized", "mode", mode, "key", storageKey, "default", defaultMode)
	return nil
}

// Mode returns the current preference.
func (s *Store) Mode() (model.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReadyLocked(); err != nil {
		return "", err
	}
	return s.mode, nil
}

// ResolvedAppearance returns light or dark, resolving system against the
// host signal at call time.
func (s *Store) ResolvedAppearance() (model.Appearance, error) {
	s.mu.Lock()
	if err := s.checkReadyLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	mode := s.mode
	s.mu.Unlock()

	return s.resolve(mode), nil
}

// SetMode validates, stores and persists m, then notifies every subscriber
// before returning. Repeating the current mode still notifies. When called
// while another notification round is running, the event is queued and
// delivered after that round by the goroutine running it.
func (s *Store) SetMode(m model.Mode) error {
	var appearance model.Appearance
	if m.Valid() {
		// Resolved outside the lock; a terminal signal may query on first use.
		appearance = s.resolve(m)
	}

	s.mu.Lock()
	if err := s.checkReadyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !m.Valid() {
		s.mu.Unlock()
		return &InvalidModeError{Value: string(m)}
	}

	previous := s.mode
	s.mode = m
	s.persistLocked(m)
	s.enqueueLocked(Event{
		Mode:       m,
		Previous:   previous,
		Appearance: appearance,
		Cause:      CauseSet,
	}, model.TriggerUser, true)
	s.mu.Unlock()

	s.drain()
	return nil
}

// Sync re-reads storage and adopts a valid value that differs from the
// in-memory mode, as written by another process. It reports whether the
// mode changed. Nothing is written back.
func (s *Store) Sync() (bool, error) {
	s.mu.Lock()
	if err := s.checkReadyLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.storage == nil || s.degraded {
		s.mu.Unlock()
		return false, nil
	}

	value, ok, err := s.storage.Get(s.key)
	if err != nil {
		s.storageFailedLocked("read", err)
		s.mu.Unlock()
		return false, nil
	}
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	m, err := model.ParseMode(value)
	if err != nil || m == s.mode {
		s.mu.Unlock()
		return false, nil
	}

	previous := s.mode
	s.mode = m
	s.enqueueLocked(Event{
		Mode:       m,
		Previous:   previous,
		Appearance: s.resolve(m),
		Cause:      CauseSync,
	}, model.TriggerSync, true)
	s.mu.Unlock()

	s.logger.Debug("adopted theme mode from storage", "mode", m, "previous", previous)
	s.drain()
	return true, nil
}

// Subscribe registers fn for every change event. The returned function
// removes the registration; calling it again is a no-op.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// Close removes the host signal listener and drops all subscribers.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	cancel := s.cancelSignal
	s.cancelSignal = nil
	s.subscribers = nil
	s.pending = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// StorageKey returns the key the mode is persisted under.
func (s *Store) StorageKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Degraded reports whether storage failed and the store runs memory-only.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Initialized reports whether Initialize has completed and Close has not run.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady
}

func (s *Store) checkReadyLocked() error {
	switch s.state {
	case stateUninitialized:
		return ErrNotInitialized
	case stateClosed:
		return ErrClosed
	}
	return nil
}

func (s *Store) resolve(m model.Mode) model.Appearance {
	if m.Concrete() || s.signal == nil {
		return model.Resolve(m, model.AppearanceLight)
	}
	return model.Resolve(m, s.signal.Current())
}

func (s *Store) persistLocked(m model.Mode) {
	if s.storage == nil || s.degraded {
		return
	}
	if err := s.storage.Set(s.key, string(m)); err != nil {
		s.storageFailedLocked("write", err)
	}
}

// storageFailedLocked switches to memory-only operation, logging only the first failure.
func (s *Store) storageFailedLocked(op string, err error) {
	if s.degraded {
		return
	}
	s.degraded = true
	s.logger.Warn("theme preference storage unavailable, continuing in memory",
		"op", op, "key", s.key, "error", err)
}

func (s *Store) handleSignal(host model.Appearance) {
	s.mu.Lock()
	if s.state != stateReady || s.mode != model.ModeSystem {
		s.mu.Unlock()
		return
	}
	s.enqueueLocked(Event{
		Mode:       model.ModeSystem,
		Previous:   model.ModeSystem,
		Appearance: model.Resolve(model.ModeSystem, host),
		Cause:      CauseSignal,
	}, "", false)
	s.mu.Unlock()

	s.logger.Debug("host color scheme changed", "appearance", host)
	s.drain()
}

func (s *Store) record(event Event, trigger model.Trigger) {
	if s.recorder == nil {
		return
	}
	t, err := model.NewTransition(event.Previous, event.Mode, event.Appearance, trigger, s.source)
	if err != nil {
		s.logger.Warn("failed to create transition record", "error", err)
		return
	}
	if err := s.recorder.Record(*t); err != nil {
		s.logger.Warn("failed to record theme transition", "error", err)
	}
}

func (s *Store) enqueueLocked(event Event, trigger model.Trigger, record bool) {
	s.pending = append(s.pending, pendingEvent{event: event, trigger: trigger, record: record})
}

// drain delivers queued events one round at a time, in the order they were
// queued. A call made while another goroutine, or a subscriber further up
// the stack, is draining returns at once and leaves its event to that loop.
func (s *Store) drain() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		if next.record {
			s.record(next.event, next.trigger)
		}
		s.notify(next.event)

		s.mu.Lock()
	}

	s.delivering = false
	s.pending = nil
	s.mu.Unlock()
}

// notify calls subscribers in registration order on a snapshot of the list,
// so callbacks may subscribe or unsubscribe while a round is in progress.
func (s *Store) notify(event Event) {
	s.mu.Lock()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(event)
	}
}
