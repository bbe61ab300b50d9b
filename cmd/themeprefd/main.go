// Package main is the entry point for the themeprefd desktop switch.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/themepref/internal/config"
	"github.com/jmylchreest/themepref/internal/gtkui"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/notify"
	"github.com/jmylchreest/themepref/internal/preference"
	"github.com/jmylchreest/themepref/internal/session"
	"github.com/jmylchreest/themepref/internal/switcher"
)

const (
	appID   = "io.github.jmylchreest.themeprefd"
	appName = "themeprefd"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default: $XDG_CONFIG_HOME/themepref/config.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("themeprefd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(*configPath, logger))
}

func run(configPath string, logger *slog.Logger) int {
	logger.Info("starting themeprefd", "version", version)

	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	app := adw.NewApplication(appID, 0)

	// Owned by the GTK main loop.
	var (
		sess          *session.Session
		style         *gtkui.StyleSignal
		window        *gtkui.SwitchWindow
		watcher       *kvstore.FileWatcher
		configWatcher *config.Watcher
		notifier      *notify.Notifier
		unsub         func()
		running       atomic.Bool
	)

	cleanup := func() {
		if configWatcher != nil {
			configWatcher.Stop()
			configWatcher = nil
		}
		if watcher != nil {
			_ = watcher.Stop()
			watcher = nil
		}
		if window != nil {
			window.Close()
			window = nil
		}
		if unsub != nil {
			unsub()
			unsub = nil
		}
		if sess != nil {
			if err := sess.Close(); err != nil {
				logger.Warn("error closing session", "error", err)
			}
			sess = nil
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			glib.IdleAdd(func() {
				if running.Load() {
					cleanup()
				}
				app.Quit()
			})
		case <-ctx.Done():
		}
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		gtkui.ApplyCSS(filepath.Dir(configPath), logger)

		notifier = notify.NewNotifier(appName, newSender(logger), logger)
		notifier.SetEnabled(cfg.Notify.Enabled)

		// The style signal is also the host signal, so the store follows the
		// same desktop scheme libadwaita renders with.
		style = gtkui.NewStyleSignal(logger)

		sess, err = session.Open(ctx, session.Options{
			Config: cfg,
			Signal: style,
			Source: appName,
			Logger: logger,
		})
		if err != nil {
			logger.Error("failed to open theme preference", "error", err)
			app.Quit()
			return
		}

		if sess.Journal != nil && cfg.History.Keep > 0 {
			if n, err := sess.Journal.Prune(cfg.History.Keep); err != nil {
				logger.Warn("failed to prune theme history", "error", err)
			} else if n > 0 {
				logger.Debug("pruned theme history", "removed", n)
			}
		}

		storagePath := sess.Backend.Path()
		store := sess.Store
		if store.Degraded() {
			notifier.NotifyStorageUnavailable(storagePath)
		}

		mode, ok := startupMode(store, logger)
		if !ok {
			cleanup()
			app.Quit()
			return
		}
		style.Apply(mode)
		unsub = store.Subscribe(func(e preference.Event) {
			if e.Cause == preference.CauseSignal {
				return
			}
			style.Apply(e.Mode)
			if e.Cause == preference.CauseSet && store.Degraded() {
				notifier.NotifyStorageUnavailable(storagePath)
			}
		})

		window = gtkui.NewSwitchWindow(&app.Application, switcher.New(store), cfg.Switch, logger)
		window.Show()

		watcher, err = sess.Watch(func() {
			glib.IdleAdd(func() {
				if sess == nil {
					return
				}
				if _, err := store.Sync(); err != nil {
					logger.Debug("failed to sync theme preference", "error", err)
				}
			})
		})
		if err != nil {
			logger.Warn("failed to watch theme preference storage", "error", err)
		}

		configWatcher = config.NewWatcher(configPath, logger)
		configWatcher.SetReloadCallback(func(newCfg *config.Config) {
			glib.IdleAdd(func() {
				if window == nil {
					return
				}
				// Only the switch placement and notifications apply live.
				window.Reconfigure(newCfg.Switch)
				notifier.SetEnabled(newCfg.Notify.Enabled)
				notifier.NotifyConfigReloaded()
			})
		})
		configWatcher.SetErrorCallback(notifier.NotifyConfigError)
		configWatcher.Start(ctx, cfg)

		logger.Info("themeprefd ready", "mode", mode, "backend", cfg.Storage.Backend, "path", storagePath)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		cleanup()
		running.Store(false)
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		return status
	}

	logger.Info("themeprefd stopped")
	return 0
}

// startupMode reads the mode to apply when the window first appears.
func startupMode(store interface{ Mode() (model.Mode, error) }, logger *slog.Logger) (model.Mode, bool) {
	mode, err := store.Mode()
	if err != nil {
		logger.Error("failed to read theme preference", "error", err)
		return "", false
	}
	return mode, true
}

// newSender connects to the notification service, or returns nil so that
// notifications are skipped.
func newSender(logger *slog.Logger) notify.Sender {
	sender, err := notify.NewBusSender()
	if err != nil {
		logger.Warn("desktop notifications unavailable", "error", err)
		return nil
	}
	return sender
}
