package gtkui

import (
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/themepref/internal/config"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/switcher"
)

const layerNamespace = "themepref-switch"

// SwitchWindow is a small undecorated layer-shell window holding the theme
// switch button.
type SwitchWindow struct {
	window *gtk.Window
	button *gtk.Button
	sw     *switcher.Switch
	cfg    config.SwitchConfig
	logger *slog.Logger

	current model.Appearance
	stop    func()
}

// NewSwitchWindow creates the switch window for app. The button activates sw
// and re-renders on every store notification.
func NewSwitchWindow(app *gtk.Application, sw *switcher.Switch, cfg config.SwitchConfig, logger *slog.Logger) *SwitchWindow {
	if logger == nil {
		logger = slog.Default()
	}

	w := &SwitchWindow{
		sw:     sw,
		cfg:    cfg,
		logger: logger,
	}

	w.window = gtk.NewWindow()
	w.window.SetApplication(app)
	w.window.SetDecorated(false)
	w.window.SetResizable(false)
	w.window.AddCSSClass(layerNamespace)

	layershell.InitForWindow(w.window)
	layershell.SetLayer(w.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(w.window, 0)
	layershell.SetKeyboardMode(w.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(w.window, layerNamespace)
	w.applyAnchors()

	w.button = gtk.NewButtonFromIconName(switcher.IconSun)
	w.button.AddCSSClass("theme-switch")
	w.button.AddCSSClass("flat")
	w.button.SetTooltipText(switcher.Label)
	w.button.ConnectClicked(w.activate)
	w.window.SetChild(w.button)

	w.stop = sw.Watch(w.Render)
	if st, err := sw.State(); err == nil {
		w.Render(st)
	} else {
		logger.Warn("failed to read switch state", "error", err)
	}

	return w
}

func (w *SwitchWindow) activate() {
	mode, err := w.sw.Activate()
	if err != nil {
		w.logger.Error("failed to toggle theme", "error", err)
		return
	}
	w.logger.Debug("theme toggled", "mode", mode)
}

// Render updates the button for st.
func (w *SwitchWindow) Render(st switcher.State) {
	if w.current != "" {
		w.button.RemoveCSSClass(w.current.String())
	}
	w.button.AddCSSClass(st.Appearance.String())
	w.button.SetIconName(st.Icon)
	w.button.SetTooltipText(st.Label)
	w.current = st.Appearance
}

// Reconfigure moves the window to a new position.
func (w *SwitchWindow) Reconfigure(cfg config.SwitchConfig) {
	if cfg == w.cfg {
		return
	}
	w.cfg = cfg
	w.applyAnchors()
	w.logger.Debug("switch moved", "position", cfg.Position, "offset_x", cfg.OffsetX, "offset_y", cfg.OffsetY)
}

// Show presents the window.
func (w *SwitchWindow) Show() {
	w.window.Present()
}

// Close stops watching the store and closes the window.
func (w *SwitchWindow) Close() {
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	w.window.Close()
}

// edge pairs a layer-shell edge with its margin.
type edge struct {
	edge   layershell.LayerShellEdge
	margin int
}

// anchorsFor returns the edges to anchor for a position, with margins.
func anchorsFor(cfg config.SwitchConfig) []edge {
	x, y := cfg.OffsetX, cfg.OffsetY

	switch config.Position(cfg.Position) {
	case config.PositionTopLeft:
		return []edge{{layershell.LayerShellEdgeTop, y}, {layershell.LayerShellEdgeLeft, x}}
	case config.PositionTopCenter:
		return []edge{{layershell.LayerShellEdgeTop, y}}
	case config.PositionBottomRight:
		return []edge{{layershell.LayerShellEdgeBottom, y}, {layershell.LayerShellEdgeRight, x}}
	case config.PositionBottomLeft:
		return []edge{{layershell.LayerShellEdgeBottom, y}, {layershell.LayerShellEdgeLeft, x}}
	case config.PositionBottomCenter:
		return []edge{{layershell.LayerShellEdgeBottom, y}}
	default:
		return []edge{{layershell.LayerShellEdgeTop, y}, {layershell.LayerShellEdgeRight, x}}
	}
}

// applyAnchors sets the layer-shell anchors and margins from config.
func (w *SwitchWindow) applyAnchors() {
	for _, e := range []layershell.LayerShellEdge{
		layershell.LayerShellEdgeTop,
		layershell.LayerShellEdgeBottom,
		layershell.LayerShellEdgeLeft,
		layershell.LayerShellEdgeRight,
	} {
		layershell.SetAnchor(w.window, e, false)
	}

	for _, e := range anchorsFor(w.cfg) {
		layershell.SetAnchor(w.window, e.edge, true)
		layershell.SetMargin(w.window, e.edge, e.margin)
	}
}
