// Package gtkui provides the libadwaita desktop switch for themeprefd.
package gtkui

import (
	"log/slog"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	coreglib "github.com/diamondburned/gotk4/pkg/core/glib"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/model"
)

// StyleSignal reports the desktop color scheme as seen by libadwaita and
// applies the resolved appearance back to it.
//
// While a concrete mode is forced, StyleManager.Dark reflects the forced
// value, so the last system value is held until the scheme is released.
// All methods must run on the GTK main loop.
type StyleSignal struct {
	sm     *adw.StyleManager
	logger *slog.Logger
	system *colorscheme.Static
	forced bool
	handle coreglib.SignalHandle
}

// NewStyleSignal binds to the default StyleManager. Call after the
// application has been activated.
func NewStyleSignal(logger *slog.Logger) *StyleSignal {
	if logger == nil {
		logger = slog.Default()
	}

	sm := adw.StyleManagerGetDefault()
	s := &StyleSignal{
		sm:     sm,
		logger: logger,
		system: colorscheme.NewStatic(appearanceOf(sm.Dark())),
	}
	s.handle = sm.NotifyProperty("dark", s.onDarkChanged)
	return s
}

func appearanceOf(dark bool) model.Appearance {
	if dark {
		return model.AppearanceDark
	}
	return model.AppearanceLight
}

func (s *StyleSignal) onDarkChanged() {
	if s.forced {
		return
	}
	a := appearanceOf(s.sm.Dark())
	s.logger.Debug("desktop color scheme changed", "appearance", a)
	s.system.Set(a)
}

// Name returns "adwaita".
func (s *StyleSignal) Name() string {
	return "adwaita"
}

// Current returns the last known system appearance.
func (s *StyleSignal) Current() model.Appearance {
	return s.system.Current()
}

// OnChange registers fn for system appearance changes.
func (s *StyleSignal) OnChange(fn func(model.Appearance)) func() {
	return s.system.OnChange(fn)
}

// Apply sets the application color scheme for mode. System releases the
// scheme back to the desktop, light and dark force it.
func (s *StyleSignal) Apply(mode model.Mode) {
	switch mode {
	case model.ModeLight:
		s.forced = true
		s.sm.SetColorScheme(adw.ColorSchemeForceLight)
	case model.ModeDark:
		s.forced = true
		s.sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		s.forced = false
		s.sm.SetColorScheme(adw.ColorSchemeDefault)
		s.system.Set(appearanceOf(s.sm.Dark()))
	}
}

// Close disconnects from the StyleManager.
func (s *StyleSignal) Close() error {
	if s.handle != 0 {
		s.sm.HandlerDisconnect(s.handle)
		s.handle = 0
	}
	return s.system.Close()
}
