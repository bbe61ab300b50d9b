// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/themepref/internal/colorscheme"
	"github.com/jmylchreest/themepref/internal/kvstore"
	"github.com/jmylchreest/themepref/internal/model"
)

const appName = "themepref"

// Default configuration values.
const (
	DefaultStorageKey   = "theme-preference"
	DefaultHistoryKeep  = 500
	DefaultWatchDelay   = 50 * time.Millisecond
	DefaultSwitchOffset = 10
)

// Config represents the themepref configuration.
type Config struct {
	Preference PreferenceConfig `toml:"preference"`
	Storage    StorageConfig    `toml:"storage"`
	Signal     SignalConfig     `toml:"signal"`
	History    HistoryConfig    `toml:"history"`
	TUI        TUIConfig        `toml:"tui"`
	Switch     SwitchConfig     `toml:"switch"`
	Notify     NotifyConfig     `toml:"notify"`
}

// PreferenceConfig holds the store initialization values.
type PreferenceConfig struct {
	DefaultMode string `toml:"default_mode"` // light, dark, system
	StorageKey  string `toml:"storage_key"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend    string   `toml:"backend"`     // file, sqlite, memory
	Path       string   `toml:"path"`        // empty = XDG state default for the backend
	WatchDelay Duration `toml:"watch_delay"` // debounce for external changes
}

// SignalConfig selects the host color-scheme source.
type SignalConfig struct {
	Source   string `toml:"source"`   // auto, portal, terminal, static
	Fallback string `toml:"fallback"` // light, dark
}

// HistoryConfig controls the transition journal.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Keep    int    `toml:"keep"` // 0 = unlimited
	Path    string `toml:"path"`
}

// TUIConfig holds TUI-specific settings.
type TUIConfig struct {
	ShowHelp bool `toml:"show_help"`
}

// NotifyConfig controls desktop notifications sent by themeprefd.
type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Preference: PreferenceConfig{
			DefaultMode: string(model.ModeSystem),
			StorageKey:  DefaultStorageKey,
		},
		Storage: StorageConfig{
			Backend:    kvstore.BackendFile,
			WatchDelay: Duration(DefaultWatchDelay),
		},
		Signal: SignalConfig{
			Source:   colorscheme.SourceAuto,
			Fallback: string(model.AppearanceLight),
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    DefaultHistoryKeep,
		},
		TUI: TUIConfig{
			ShowHelp: true,
		},
		Switch: SwitchConfig{
			Position: string(PositionTopRight),
			OffsetX:  DefaultSwitchOffset,
			OffsetY:  DefaultSwitchOffset,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
	}
}

// DefaultMode returns the parsed default mode.
func (c *Config) DefaultMode() model.Mode {
	return model.Mode(c.Preference.DefaultMode)
}

// Fallback returns the parsed fallback appearance.
func (c *Config) Fallback() model.Appearance {
	return model.Appearance(c.Signal.Fallback)
}

// StoragePath returns the configured storage path or the backend default.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return expandPath(c.Storage.Path)
	}
	return PreferencesPath(c.Storage.Backend)
}

// JournalPath returns the configured history path or the default.
func (c *Config) JournalPath() string {
	if c.History.Path != "" {
		return expandPath(c.History.Path)
	}
	return HistoryPath()
}

func xdgDir(env string, fallback ...string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(dir, appName)
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}

// StatePath returns the state directory.
// Uses XDG_STATE_HOME if set, otherwise ~/.local/state.
func StatePath() string {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

// DataPath returns the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// PreferencesPath returns the default storage location for backend.
// The memory backend has no path.
func PreferencesPath(backend string) string {
	switch backend {
	case kvstore.BackendMemory:
		return ""
	case kvstore.BackendSQLite:
		return filepath.Join(StatePath(), "preferences.db")
	default:
		return filepath.Join(StatePath(), "preferences.toml")
	}
}

// HistoryPath returns the path to the history JSONL file.
func HistoryPath() string {
	return filepath.Join(DataPath(), "history.jsonl")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := model.ParseMode(c.Preference.DefaultMode); err != nil {
		return fmt.Errorf("preference.default_mode: %w", err)
	}
	if strings.TrimSpace(c.Preference.StorageKey) == "" {
		return errors.New("preference.storage_key cannot be empty")
	}

	if !slices.Contains(kvstore.ValidBackends(), c.Storage.Backend) {
		return fmt.Errorf("invalid storage backend %q, must be one of: %v", c.Storage.Backend, kvstore.ValidBackends())
	}
	if c.Storage.WatchDelay < 0 {
		return fmt.Errorf("storage.watch_delay cannot be negative, got %s", c.Storage.WatchDelay.Duration())
	}

	if !slices.Contains(colorscheme.ValidSources(), c.Signal.Source) {
		return fmt.Errorf("invalid signal source %q, must be one of: %v", c.Signal.Source, colorscheme.ValidSources())
	}
	if _, err := model.ParseAppearance(c.Signal.Fallback); err != nil {
		return fmt.Errorf("signal.fallback: %w", err)
	}

	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", c.History.Keep)
	}

	return c.Switch.Validate()
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	path := StatePath()
	if path == "" {
		return errors.New("unable to determine state directory")
	}
	return os.MkdirAll(path, 0700)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
