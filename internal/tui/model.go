// Package tui provides the BubbleTea-based terminal theme switch.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/preference"
	"github.com/jmylchreest/themepref/internal/switcher"
)

// eventBuffer bounds store events queued between renders. Overflow is
// dropped since every render reads the store directly.
const eventBuffer = 16

// Store is what the TUI needs from the preference store.
type Store interface {
	switcher.Controller
	Mode() (model.Mode, error)
}

// LastChangeFunc returns the time of the most recent mode change, if known.
type LastChangeFunc func() (time.Time, bool)

// Options configures the TUI model.
type Options struct {
	ShowHelp   bool
	SignalName string // host signal shown in the footer
	LastChange LastChangeFunc
}

// Model is the main TUI model.
type Model struct {
	store Store
	sw    *switcher.Switch
	opts  Options

	help help.Model
	keys KeyMap

	// State
	mode       model.Mode
	appearance model.Appearance
	lastCause  string
	width      int
	height     int
	ready      bool
	err        error

	// Status message
	statusMsg string
	statusErr bool

	events      chan preference.Event
	unsubscribe func()
}

// New creates a TUI model bound to s and subscribes to its changes.
// Call Close when the program exits.
func New(s Store, opts Options) Model {
	h := help.New()
	h.ShowAll = opts.ShowHelp

	m := Model{
		store:  s,
		sw:     switcher.New(s),
		opts:   opts,
		help:   h,
		keys:   DefaultKeyMap(),
		events: make(chan preference.Event, eventBuffer),
	}

	events := m.events
	m.unsubscribe = s.Subscribe(func(e preference.Event) {
		select {
		case events <- e:
		default:
		}
	})

	m.refresh()
	return m
}

// Close removes the store subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent
}

type storeEventMsg struct {
	event preference.Event
}

// waitForEvent blocks until the store notifies.
func (m Model) waitForEvent() tea.Msg {
	return storeEventMsg{event: <-m.events}
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case storeEventMsg:
		m.lastCause = msg.event.Cause.String()
		m.refresh()
		return m, m.waitForEvent

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		target, err := m.sw.Activate()
		return m.afterSet(target, err)

	case key.Matches(msg, m.keys.Light):
		return m.afterSet(model.ModeLight, m.store.SetMode(model.ModeLight))

	case key.Matches(msg, m.keys.Dark):
		return m.afterSet(model.ModeDark, m.store.SetMode(model.ModeDark))

	case key.Matches(msg, m.keys.System):
		return m.afterSet(model.ModeSystem, m.store.SetMode(model.ModeSystem))
	}

	return m, nil
}

func (m Model) afterSet(target model.Mode, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		return m, func() tea.Msg {
			return statusMsg{text: "Failed to set theme: " + err.Error(), isErr: true}
		}
	}
	m.refresh()
	return m, func() tea.Msg {
		return statusMsg{text: "Theme set to " + target.String()}
	}
}

// refresh reads the current state from the store.
func (m *Model) refresh() {
	mode, err := m.store.Mode()
	if err != nil {
		m.err = err
		return
	}
	appearance, err := m.store.ResolvedAppearance()
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.mode = mode
	m.appearance = appearance
}

// palette holds the colors for one appearance.
type palette struct {
	fg, bg, accent, muted lipgloss.Color
}

var palettes = map[model.Appearance]palette{
	model.AppearanceLight: {fg: "#1f2328", bg: "#f6f8fa", accent: "#bf8700", muted: "#656d76"},
	model.AppearanceDark:  {fg: "#e6edf3", bg: "#161b22", accent: "#79c0ff", muted: "#8b949e"},
}

func paletteFor(a model.Appearance) palette {
	if p, ok := palettes[a]; ok {
		return p
	}
	return palettes[model.AppearanceLight]
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Error: "+m.err.Error()) +
			"\n\n" + m.help.View(m.keys)
	}

	p := paletteFor(m.appearance)
	state := switcher.StateFor(m.appearance)

	buttonStyle := lipgloss.NewStyle().
		Foreground(p.accent).
		Background(p.bg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.accent).
		Padding(0, 2).
		Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(p.fg)
	mutedStyle := lipgloss.NewStyle().Foreground(p.muted)

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		buttonStyle.Render(state.Glyph),
		"  ",
		labelStyle.Render(state.Label),
	))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("mode:      "), labelStyle.Render(m.mode.String()))
	fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("appearance:"), labelStyle.Render(m.appearance.String()))
	if m.opts.SignalName != "" {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("signal:    "), labelStyle.Render(m.opts.SignalName))
	}
	if m.opts.LastChange != nil {
		if t, ok := m.opts.LastChange(); ok {
			fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("changed:   "), labelStyle.Render(humanize.Time(t)))
		}
	}
	if m.lastCause != "" {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render("last event:"), labelStyle.Render(m.lastCause))
	}

	b.WriteString("\n")
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(p.fg)
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		b.WriteString(statusStyle.Render(m.statusMsg))
	} else {
		b.WriteString(m.help.View(m.keys))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// RunOptions configures the TUI.
type RunOptions struct {
	Store Store
	Options
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOptions) error {
	if opts.Store == nil {
		return fmt.Errorf("no preference store provided")
	}

	m := New(opts.Store, opts.Options)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
