package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/config"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/session"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		configPath  string
		storagePath string
		assume      string
		noPersist   bool
	}
	logger *slog.Logger

	// sess is opened before every command and closed after it.
	sess *session.Session
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "themepref",
	Short: "Light, dark and system theme preference",
	Long: `themepref stores a light, dark or system theme preference and resolves
it against the desktop color scheme.

The preference is shared with the themeprefd desktop switch, so a change
made here is picked up by every running switch.

Running themepref without a subcommand launches the interactive TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(cmd.ErrOrStderr())

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.noPersist {
			cfg.Storage.Backend = kvstore.BackendMemory
		}

		opts := session.Options{
			Config:      cfg,
			StoragePath: globalOpts.storagePath,
			Source:      sourceFor(cmd),
			Logger:      logger,
		}
		if globalOpts.assume != "" {
			a, err := model.ParseAppearance(globalOpts.assume)
			if err != nil {
				return fmt.Errorf("invalid --assume: %w", err)
			}
			opts.Signal = colorscheme.NewStatic(a)
		}

		sess, err = session.Open(commandContext(cmd), opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeSession()
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// PostRun is skipped when RunE fails.
		_ = closeSession()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/themepref/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storagePath, "storage-path", "",
		"Path to the preference store (default depends on storage backend)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.assume, "assume", "",
		"Assume the desktop prefers this appearance (light, dark)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.noPersist, "no-persist", false,
		"Keep the preference in memory only")
}

// setupLogger configures the global slog logger.
func setupLogger(w io.Writer) {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// sourceFor names the transition source for cmd.
func sourceFor(cmd *cobra.Command) string {
	if !cmd.HasParent() || cmd.Name() == "tui" {
		return "tui"
	}
	return "cli"
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func closeSession() error {
	if sess == nil {
		return nil
	}
	err := sess.Close()
	sess = nil
	return err
}

// startSync keeps the store in step with writes by other processes.
// The returned function stops watching.
func startSync() func() {
	s := sess
	fw, err := s.Watch(func() {
		if _, err := s.Store.Sync(); err != nil {
			logger.Debug("failed to sync theme preference", "error", err)
		}
	})
	if err != nil {
		logger.Warn("failed to watch preference storage", "error", err)
		return func() {}
	}
	if fw == nil {
		return func() {}
	}
	return func() { _ = fw.Stop() }
}
