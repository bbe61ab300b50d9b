package preference

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
)

const testKey = "theme-preference"

type recorderFunc func(model.Transition) error

func (f recorderFunc) Record(t model.Transition) error { return f(t) }

func newTestStore(t *testing.T, storage Storage, signal Signal) *Store {
	t.Helper()
	s := New(Options{Storage: storage, Signal: signal, Source: "test"})
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_NotInitialized(t *testing.T) {
	s := newTestStore(t, nil, nil)

	_, err := s.Mode()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = s.ResolvedAppearance()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.SetMode(model.ModeDark), ErrNotInitialized)
	_, err = s.Sync()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, s.Initialized())
}

func TestStore_Initialize(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		present bool
		def     model.Mode
		want    model.Mode
	}{
		{"nothing stored", "", false, model.ModeSystem, model.ModeSystem},
		{"stored dark", "dark", true, model.ModeSystem, model.ModeDark},
		{"stored light over dark default", "light", true, model.ModeDark, model.ModeLight},
		{"invalid stored value", "purple", true, model.ModeLight, model.ModeLight},
		{"wrong case is invalid", "Dark", true, model.ModeSystem, model.ModeSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := kvstore.NewMemoryStore()
			if tt.present {
				require.NoError(t, mem.Set(testKey, tt.stored))
			}

			s := newTestStore(t, mem, nil)
			require.NoError(t, s.Initialize(tt.def, testKey))

			got, err := s.Mode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, testKey, s.StorageKey())

			// Initialization never writes.
			_, writes := mem.Counts()
			if tt.present {
				assert.Equal(t, 1, writes)
			} else {
				assert.Equal(t, 0, writes)
			}
		})
	}
}

func TestStore_InitializeErrors(t *testing.T) {
	s := newTestStore(t, nil, nil)

	var invalid *InvalidModeError
	assert.ErrorAs(t, s.Initialize("auto", testKey), &invalid)
	assert.Equal(t, "auto", invalid.Value)
	assert.ErrorIs(t, s.Initialize(model.ModeSystem, ""), ErrEmptyStorageKey)

	require.NoError(t, s.Initialize(model.ModeSystem, testKey))
	assert.ErrorIs(t, s.Initialize(model.ModeDark, testKey), ErrAlreadyInitialized)

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeSystem, m)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Initialize(model.ModeDark, testKey), ErrClosed)
	_, err = s.Mode()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStore_SetMode(t *testing.T) {
	mem := kvstore.NewMemoryStore()
	s := newTestStore(t, mem, colorscheme.NewStatic(model.AppearanceLight))
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, s.SetMode(model.ModeDark))

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeDark, m)
	assert.Equal(t, map[string]string{testKey: "dark"}, mem.Snapshot())

	require.Len(t, events, 1)
	assert.Equal(t, Event{
		Mode:       model.ModeDark,
		Previous:   model.ModeSystem,
		Appearance: model.AppearanceDark,
		Cause:      CauseSet,
	}, events[0])
}

func TestStore_SetModeInvalid(t *testing.T) {
	mem := kvstore.NewMemoryStore()
	s := newTestStore(t, mem, nil)
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	calls := 0
	s.Subscribe(func(Event) { calls++ })

	for _, bad := range []model.Mode{"", "auto", "LIGHT", "sepia"} {
		var invalid *InvalidModeError
		require.ErrorAs(t, s.SetMode(bad), &invalid)
		assert.Equal(t, string(bad), invalid.Value)
	}

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeLight, m)
	assert.Equal(t, 0, calls)
	_, writes := mem.Counts()
	assert.Equal(t, 0, writes)
}

func TestStore_SetModeSameValueNotifies(t *testing.T) {
	s := newTestStore(t, kvstore.NewMemoryStore(), nil)
	require.NoError(t, s.Initialize(model.ModeDark, testKey))

	calls := 0
	s.Subscribe(func(Event) { calls++ })

	require.NoError(t, s.SetMode(model.ModeDark))
	require.NoError(t, s.SetMode(model.ModeDark))
	assert.Equal(t, 2, calls)
}

func TestStore_ResolvedAppearance(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceDark)
	s := newTestStore(t, nil, host)
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	tests := []struct {
		mode model.Mode
		host model.Appearance
		want model.Appearance
	}{
		{model.ModeSystem, model.AppearanceDark, model.AppearanceDark},
		{model.ModeSystem, model.AppearanceLight, model.AppearanceLight},
		{model.ModeLight, model.AppearanceDark, model.AppearanceLight},
		{model.ModeDark, model.AppearanceLight, model.AppearanceDark},
	}

	for _, tt := range tests {
		host.Set(tt.host)
		require.NoError(t, s.SetMode(tt.mode))
		got, err := s.ResolvedAppearance()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "mode=%s host=%s", tt.mode, tt.host)
	}
}

func TestStore_NoSignalResolvesLight(t *testing.T) {
	s := newTestStore(t, nil, nil)
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	got, err := s.ResolvedAppearance()
	require.NoError(t, err)
	assert.Equal(t, model.AppearanceLight, got)
}

func TestStore_HostChangeWhileSystem(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceLight)
	mem := kvstore.NewMemoryStore()
	s := newTestStore(t, mem, host)
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	host.Set(model.AppearanceDark)

	require.Len(t, events, 1)
	assert.Equal(t, model.ModeSystem, events[0].Mode)
	assert.Equal(t, model.AppearanceDark, events[0].Appearance)
	assert.Equal(t, CauseSignal, events[0].Cause)

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeSystem, m)

	// Signal changes are not persisted.
	_, writes := mem.Counts()
	assert.Equal(t, 0, writes)
}

func TestStore_HostChangeIgnoredForExplicitMode(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceLight)
	s := newTestStore(t, nil, host)
	require.NoError(t, s.Initialize(model.ModeDark, testKey))

	calls := 0
	s.Subscribe(func(Event) { calls++ })

	host.Set(model.AppearanceDark)
	host.Set(model.AppearanceLight)
	assert.Equal(t, 0, calls)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := newTestStore(t, nil, nil)
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	var a, b int
	unsubA := s.Subscribe(func(Event) { a++ })
	s.Subscribe(func(Event) { b++ })

	require.NoError(t, s.SetMode(model.ModeDark))
	unsubA()
	unsubA()
	require.NoError(t, s.SetMode(model.ModeLight))

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestStore_SubscriberOrderAndSnapshot(t *testing.T) {
	s := newTestStore(t, nil, nil)
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	var order []string
	var unsubSelf func()
	unsubSelf = s.Subscribe(func(Event) {
		order = append(order, "first")
		unsubSelf()
		// Added during a round, called from the next one.
		s.Subscribe(func(Event) { order = append(order, "late") })
	})
	s.Subscribe(func(Event) { order = append(order, "second") })

	require.NoError(t, s.SetMode(model.ModeDark))
	assert.Equal(t, []string{"first", "second"}, order)

	order = nil
	require.NoError(t, s.SetMode(model.ModeLight))
	assert.Equal(t, []string{"second", "late"}, order)
}

func TestStore_NestedSetModeDeliveredAfterRound(t *testing.T) {
	s := newTestStore(t, nil, nil)
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	var seen []string
	s.Subscribe(func(e Event) {
		seen = append(seen, "first:"+string(e.Mode))
		if e.Mode == model.ModeDark {
			assert.NoError(t, s.SetMode(model.ModeLight))
		}
	})
	s.Subscribe(func(e Event) { seen = append(seen, "second:"+string(e.Mode)) })

	require.NoError(t, s.SetMode(model.ModeDark))
	assert.Equal(t, []string{"first:dark", "second:dark", "first:light", "second:light"}, seen)
}

func TestStore_ConcurrentRoundsDeliveredInOrder(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceDark)
	s := newTestStore(t, nil, host)
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var events []Event
	s.Subscribe(func(e Event) {
		if e.Cause == CauseSignal {
			close(entered)
			<-release
		}
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	signalDone := make(chan struct{})
	go func() {
		defer close(signalDone)
		host.Set(model.AppearanceLight)
	}()
	<-entered

	// The signal round is still running, so this event waits behind it.
	require.NoError(t, s.SetMode(model.ModeDark))
	mu.Lock()
	assert.Empty(t, events)
	mu.Unlock()

	close(release)
	<-signalDone

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, CauseSignal, events[0].Cause)
	assert.Equal(t, model.AppearanceLight, events[0].Appearance)
	assert.Equal(t, CauseSet, events[1].Cause)
	assert.Equal(t, model.ModeDark, events[1].Mode)
	assert.Equal(t, model.AppearanceDark, events[1].Appearance)

	got, err := s.ResolvedAppearance()
	require.NoError(t, err)
	assert.Equal(t, events[len(events)-1].Appearance, got)
}

func TestStore_RoundTripFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")

	for _, m := range model.ValidModes() {
		t.Run(string(m), func(t *testing.T) {
			fs, err := kvstore.NewFileStore(path)
			require.NoError(t, err)

			first := newTestStore(t, fs, nil)
			require.NoError(t, first.Initialize(model.ModeSystem, testKey))
			require.NoError(t, first.SetMode(m))
			require.NoError(t, first.Close())

			fs2, err := kvstore.NewFileStore(path)
			require.NoError(t, err)
			second := newTestStore(t, fs2, nil)
			require.NoError(t, second.Initialize(model.ModeLight, testKey))

			got, err := second.Mode()
			require.NoError(t, err)
			assert.Equal(t, m, got)
		})
	}
}

func TestStore_ToggleScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.db")
	host := colorscheme.NewStatic(model.AppearanceLight)

	db, err := kvstore.NewSQLiteStore(path)
	require.NoError(t, err)
	defer db.Close()

	s := newTestStore(t, db, host)
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	resolved, err := s.ResolvedAppearance()
	require.NoError(t, err)
	assert.Equal(t, model.AppearanceLight, resolved)

	// A toggle sets the opposite of the resolved appearance.
	require.NoError(t, s.SetMode(resolved.Opposite().Mode()))

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeDark, m)

	v, ok, err := db.Get(testKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	reloaded := newTestStore(t, db, host)
	require.NoError(t, reloaded.Initialize(model.ModeSystem, testKey))
	m, err = reloaded.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeDark, m)
}

func TestStore_StorageFailureLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mem := kvstore.NewMemoryStore()
	mem.FailWrites(errors.New("disk full"))

	s := New(Options{Storage: mem, Logger: logger})
	defer s.Close()
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	calls := 0
	s.Subscribe(func(Event) { calls++ })

	require.NoError(t, s.SetMode(model.ModeDark))
	require.NoError(t, s.SetMode(model.ModeLight))

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeLight, m)
	assert.Equal(t, 2, calls)
	assert.True(t, s.Degraded())

	assert.Equal(t, 1, strings.Count(buf.String(), "storage unavailable"))
	assert.Contains(t, buf.String(), "disk full")

	// Writes stop after the first failure.
	_, writes := mem.Counts()
	assert.Equal(t, 1, writes)
}

func TestStore_StorageReadFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mem := kvstore.NewMemoryStore()
	mem.FailReads(errors.New("permission denied"))

	s := New(Options{Storage: mem, Logger: logger})
	defer s.Close()
	require.NoError(t, s.Initialize(model.ModeDark, testKey))

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeDark, m)
	assert.True(t, s.Degraded())
	assert.Contains(t, buf.String(), "permission denied")

	require.NoError(t, s.SetMode(model.ModeLight))
	assert.Equal(t, 1, strings.Count(buf.String(), "storage unavailable"))
}

func TestStore_Sync(t *testing.T) {
	mem := kvstore.NewMemoryStore()
	s := newTestStore(t, mem, colorscheme.NewStatic(model.AppearanceDark))
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	changed, err := s.Sync()
	require.NoError(t, err)
	assert.False(t, changed)

	// Another process writes system.
	require.NoError(t, mem.Set(testKey, "system"))
	changed, err = s.Sync()
	require.NoError(t, err)
	assert.True(t, changed)

	m, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeSystem, m)
	require.Len(t, events, 1)
	assert.Equal(t, CauseSync, events[0].Cause)
	assert.Equal(t, model.ModeLight, events[0].Previous)
	assert.Equal(t, model.AppearanceDark, events[0].Appearance)

	// Same value and garbage are ignored.
	changed, err = s.Sync()
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mem.Set(testKey, "neon"))
	changed, err = s.Sync()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, events, 1)

	// Sync never writes back.
	_, writes := mem.Counts()
	assert.Equal(t, 2, writes)
}

func TestStore_CloseRemovesSignalListener(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceLight)
	s := New(Options{Signal: host})
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))
	assert.Equal(t, 1, host.Listeners())

	calls := 0
	s.Subscribe(func(Event) { calls++ })

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, host.Listeners())

	host.Set(model.AppearanceDark)
	assert.Equal(t, 0, calls)
	assert.ErrorIs(t, s.SetMode(model.ModeDark), ErrClosed)
}

// hookSignal runs onRegister inside OnChange and records cancellation.
type hookSignal struct {
	onRegister func()
	cancelled  bool
}

func (h *hookSignal) Current() model.Appearance { return model.AppearanceLight }

func (h *hookSignal) OnChange(func(model.Appearance)) func() {
	if h.onRegister != nil {
		h.onRegister()
	}
	return func() { h.cancelled = true }
}

func TestStore_CloseDuringInitialize(t *testing.T) {
	sig := &hookSignal{}
	s := New(Options{Signal: sig})
	sig.onRegister = func() { assert.NoError(t, s.Close()) }

	assert.ErrorIs(t, s.Initialize(model.ModeSystem, testKey), ErrClosed)
	assert.True(t, sig.cancelled)
	assert.False(t, s.Initialized())
}

func TestStore_Recorder(t *testing.T) {
	var recorded []model.Transition
	rec := recorderFunc(func(tr model.Transition) error {
		recorded = append(recorded, tr)
		return nil
	})

	host := colorscheme.NewStatic(model.AppearanceLight)
	s := New(Options{Signal: host, Recorder: rec, Source: "test"})
	defer s.Close()
	require.NoError(t, s.Initialize(model.ModeSystem, testKey))

	require.NoError(t, s.SetMode(model.ModeDark))
	// Host changes are not transitions.
	require.NoError(t, s.SetMode(model.ModeSystem))
	host.Set(model.AppearanceDark)

	require.Len(t, recorded, 2)
	assert.Equal(t, model.ModeSystem, recorded[0].From)
	assert.Equal(t, model.ModeDark, recorded[0].To)
	assert.Equal(t, model.AppearanceDark, recorded[0].Resolved)
	assert.Equal(t, model.TriggerUser, recorded[0].Trigger)
	assert.Equal(t, "test", recorded[0].Source)
	assert.NoError(t, recorded[0].Validate())
	assert.NotEqual(t, recorded[0].ID, recorded[1].ID)
}

func TestStore_RecorderFailureDoesNotFailSet(t *testing.T) {
	var buf bytes.Buffer
	rec := recorderFunc(func(model.Transition) error { return errors.New("journal gone") })

	s := New(Options{Recorder: rec, Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	defer s.Close()
	require.NoError(t, s.Initialize(model.ModeLight, testKey))

	require.NoError(t, s.SetMode(model.ModeDark))
	assert.Contains(t, buf.String(), "journal gone")
}

func TestCause_String(t *testing.T) {
	assert.Equal(t, "set", CauseSet.String())
	assert.Equal(t, "signal", CauseSignal.String())
	assert.Equal(t, "sync", CauseSync.String())
	assert.Equal(t, "unknown", Cause(42).String())
}
