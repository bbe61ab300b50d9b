package colorscheme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/themepref/internal/model"
)

// XDG desktop portal constants for the Settings interface.
const (
	PortalDest          = "org.freedesktop.portal.Desktop"
	PortalPath          = "/org/freedesktop/portal/desktop"
	SettingsInterface   = "org.freedesktop.portal.Settings"
	AppearanceNamespace = "org.freedesktop.appearance"
	ColorSchemeKey      = "color-scheme"
)

// Portal color-scheme values. 0 means no preference.
const (
	portalPreferDark  uint32 = 1
	portalPreferLight uint32 = 2
)

// Portal reads the color scheme from the freedesktop settings portal and
// follows SettingChanged signals on the session bus.
type Portal struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	conn     *dbus.Conn
	fallback model.Appearance
	current  model.Appearance

	listeners listeners
	signals   chan *dbus.Signal
	stop      chan struct{}
	done      chan struct{}
}

// NewPortal creates a Portal. fallback is reported when the desktop
// expresses no preference.
func NewPortal(fallback model.Appearance, logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.Default()
	}
	if !fallback.Valid() {
		fallback = model.AppearanceLight
	}
	return &Portal{
		logger:   logger,
		fallback: fallback,
		current:  fallback,
	}
}

// Name returns "portal".
func (p *Portal) Name() string {
	return SourcePortal
}

// Start connects to the session bus, reads the current value and subscribes
// to changes.
func (p *Portal) Start(ctx context.Context) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	value, err := readColorScheme(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}

	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(PortalPath),
		dbus.WithMatchInterface(SettingsInterface),
		dbus.WithMatchMember("SettingChanged"),
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.current = p.appearanceFor(value)
	p.signals = make(chan *dbus.Signal, 10)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.mu.Unlock()

	conn.Signal(p.signals)
	go p.processSignals(p.signals, p.stop, p.done)

	p.logger.Debug("following desktop portal color scheme", "appearance", p.Current())
	return nil
}

// readColorScheme queries ReadOne, falling back to the deprecated Read
// method on portals older than version 2.
func readColorScheme(ctx context.Context, conn *dbus.Conn) (any, error) {
	obj := conn.Object(PortalDest, PortalPath)

	var v dbus.Variant
	err := obj.CallWithContext(ctx, SettingsInterface+".ReadOne", 0,
		AppearanceNamespace, ColorSchemeKey).Store(&v)
	if err == nil {
		return v.Value(), nil
	}

	if err := obj.CallWithContext(ctx, SettingsInterface+".Read", 0,
		AppearanceNamespace, ColorSchemeKey).Store(&v); err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", AppearanceNamespace, ColorSchemeKey, err)
	}
	return v.Value(), nil
}

// processSignals reads SettingChanged signals until stopped.
func (p *Portal) processSignals(signals <-chan *dbus.Signal, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return
			}
			p.handleSignal(sig)
		case <-stop:
			return
		}
	}
}

// handleSignal applies a SettingChanged(namespace, key, value) signal.
func (p *Portal) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != SettingsInterface+".SettingChanged" {
		return
	}
	if len(sig.Body) < 3 {
		p.logger.Warn("malformed SettingChanged signal", "body_len", len(sig.Body))
		return
	}

	namespace, _ := sig.Body[0].(string)
	key, _ := sig.Body[1].(string)
	if namespace != AppearanceNamespace || key != ColorSchemeKey {
		return
	}

	p.set(p.appearanceFor(sig.Body[2]))
}

func (p *Portal) set(a model.Appearance) {
	p.mu.Lock()
	if a == p.current {
		p.mu.Unlock()
		return
	}
	p.current = a
	p.mu.Unlock()

	p.logger.Debug("desktop portal color scheme changed", "appearance", a)
	p.listeners.emit(a)
}

// appearanceFor maps a raw portal value to an appearance.
func (p *Portal) appearanceFor(value any) model.Appearance {
	if a, ok := parseColorScheme(value); ok {
		return a
	}
	return p.fallback
}

// parseColorScheme decodes the portal value. ok is false for "no preference"
// and for values it does not understand.
func parseColorScheme(value any) (model.Appearance, bool) {
	var raw uint32
	switch v := value.(type) {
	case dbus.Variant:
		return parseColorScheme(v.Value())
	case uint32:
		raw = v
	case int32:
		raw = uint32(v)
	default:
		return "", false
	}

	switch raw {
	case portalPreferDark:
		return model.AppearanceDark, true
	case portalPreferLight:
		return model.AppearanceLight, true
	default:
		return "", false
	}
}

// Current returns the last known portal appearance.
func (p *Portal) Current() model.Appearance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// OnChange registers fn for appearance changes.
func (p *Portal) OnChange(fn func(model.Appearance)) func() {
	return p.listeners.add(fn)
}

// Close stops following the portal and closes the bus connection.
func (p *Portal) Close() error {
	p.mu.Lock()
	conn := p.conn
	signals := p.signals
	stop := p.stop
	done := p.done
	p.conn = nil
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.RemoveSignal(signals)
	close(stop)
	err := conn.Close()
	<-done
	p.listeners.clear()
	return err
}
