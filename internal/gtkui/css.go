package gtkui

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

//go:embed switch.css
var defaultCSS string

// userCSSPath returns the override stylesheet location, or "" when the
// config directory is unknown.
func userCSSPath(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "switch.css")
}

// loadCSS returns the user stylesheet when present, otherwise the bundled one.
func loadCSS(configDir string, logger *slog.Logger) string {
	path := userCSSPath(configDir)
	if path == "" {
		return defaultCSS
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read user stylesheet, using bundled", "path", path, "error", err)
		}
		return defaultCSS
	}
	logger.Info("loaded user stylesheet", "path", path)
	return string(data)
}

// ApplyCSS installs the switch stylesheet on the default display.
// configDir is searched for a switch.css override.
func ApplyCSS(configDir string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	display := gdk.DisplayGetDefault()
	if display == nil {
		logger.Warn("no display available, cannot apply stylesheet")
		return
	}

	provider := gtk.NewCSSProvider()
	provider.LoadFromString(loadCSS(configDir, logger))
	gtk.StyleContextAddProviderForDisplay(
		display,
		provider,
		gtk.STYLE_PROVIDER_PRIORITY_APPLICATION,
	)
}
