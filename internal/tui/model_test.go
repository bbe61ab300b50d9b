package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/preference"
)

func newTestModel(t *testing.T, host *colorscheme.Static, opts Options) (Model, *preference.Store) {
	t.Helper()
	s := preference.New(preference.Options{Storage: kvstore.NewMemoryStore(), Signal: host})
	require.NoError(t, s.Initialize(model.ModeSystem, "theme-preference"))
	t.Cleanup(func() { _ = s.Close() })

	m := New(s, opts)
	t.Cleanup(m.Close)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model), s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Toggle(t *testing.T) {
	m, s := newTestModel(t, colorscheme.NewStatic(model.AppearanceLight), Options{})
	assert.Equal(t, model.ModeSystem, m.mode)
	assert.Equal(t, model.AppearanceLight, m.appearance)

	updated, cmd := m.Update(runes("t"))
	m = updated.(Model)
	require.NotNil(t, cmd)

	mode, err := s.Mode()
	require.NoError(t, err)
	assert.Equal(t, model.ModeDark, mode)
	assert.Equal(t, model.ModeDark, m.mode)
	assert.Equal(t, model.AppearanceDark, m.appearance)

	msg := cmd()
	assert.Equal(t, statusMsg{text: "Theme set to dark"}, msg)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Equal(t, model.ModeLight, m.mode)
}

func TestModel_ExplicitModes(t *testing.T) {
	m, s := newTestModel(t, colorscheme.NewStatic(model.AppearanceDark), Options{})

	tests := []struct {
		key  string
		want model.Mode
		look model.Appearance
	}{
		{"l", model.ModeLight, model.AppearanceLight},
		{"d", model.ModeDark, model.AppearanceDark},
		{"s", model.ModeSystem, model.AppearanceDark},
	}

	for _, tt := range tests {
		updated, _ := m.Update(runes(tt.key))
		m = updated.(Model)
		got, err := s.Mode()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "key %q", tt.key)
		assert.Equal(t, tt.look, m.appearance, "key %q", tt.key)
	}
}

func TestModel_StoreEventsBridge(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceLight)
	m, _ := newTestModel(t, host, Options{})

	host.Set(model.AppearanceDark)

	msg := m.waitForEvent()
	ev, ok := msg.(storeEventMsg)
	require.True(t, ok)
	assert.Equal(t, preference.CauseSignal, ev.event.Cause)

	updated, cmd := m.Update(msg)
	m = updated.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, model.AppearanceDark, m.appearance)
	assert.Equal(t, "signal", m.lastCause)
	assert.Contains(t, m.View(), "dark")
}

func TestModel_CloseStopsEvents(t *testing.T) {
	host := colorscheme.NewStatic(model.AppearanceLight)
	m, s := newTestModel(t, host, Options{})

	m.Close()
	require.NoError(t, s.SetMode(model.ModeDark))
	assert.Len(t, m.events, 0)
}

func TestModel_ErrorShownInStatus(t *testing.T) {
	s := preference.New(preference.Options{})
	m := New(s, Options{})
	defer m.Close()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	assert.ErrorIs(t, m.err, preference.ErrNotInitialized)
	assert.Contains(t, m.View(), "not initialized")

	_, cmd := m.Update(runes("t"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(statusMsg)
	require.True(t, ok)
	assert.True(t, msg.isErr)
	assert.True(t, errors.Is(s.SetMode(model.ModeDark), preference.ErrNotInitialized))
}

func TestModel_HelpAndQuit(t *testing.T) {
	m, _ := newTestModel(t, colorscheme.NewStatic(model.AppearanceLight), Options{})
	assert.False(t, m.help.ShowAll)

	updated, _ := m.Update(runes("?"))
	m = updated.(Model)
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "follow system")

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_View(t *testing.T) {
	changed := time.Now().Add(-3 * time.Minute)
	m, _ := newTestModel(t, colorscheme.NewStatic(model.AppearanceLight), Options{
		SignalName: "static",
		LastChange: func() (time.Time, bool) { return changed, true },
	})

	view := m.View()
	assert.Contains(t, view, "Toggle theme")
	assert.Contains(t, view, "system")
	assert.Contains(t, view, "light")
	assert.Contains(t, view, "static")
	assert.Contains(t, view, "3 minutes ago")

	updated, _ := m.Update(statusMsg{text: "hello"})
	assert.Contains(t, updated.(Model).View(), "hello")

	updated, _ = updated.Update(clearStatusMsg{})
	assert.NotContains(t, updated.(Model).View(), "hello")
}

func TestModel_NotReady(t *testing.T) {
	s := preference.New(preference.Options{})
	m := New(s, Options{})
	defer m.Close()
	assert.Equal(t, "Initializing...", m.View())
}

func TestRun_RequiresStore(t *testing.T) {
	assert.Error(t, Run(RunOptions{}))
}
