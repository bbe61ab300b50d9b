package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/switcher"
)

var setCmd = &cobra.Command{
	Use:   "set <light|dark|system>",
	Short: "Set the theme preference",
	Long: `Set the theme preference and persist it.

system follows the desktop color scheme; light and dark override it.
The mode must be given exactly, in lower case.

Examples:
  themepref set dark
  themepref set system`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: modeNames(),
	RunE:      runSet,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between light and dark",
	Long: `Switch to the opposite of the currently displayed appearance.

Toggling always stores an explicit light or dark preference, even when the
current preference is system.`,
	Args: cobra.NoArgs,
	RunE: runToggle,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(toggleCmd)
}

func modeNames() []string {
	modes := model.ValidModes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names
}

func runSet(cmd *cobra.Command, args []string) error {
	mode, err := model.ParseMode(args[0])
	if err != nil {
		return err
	}
	if err := sess.Store.SetMode(mode); err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}
	return printMode(cmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	if _, err := switcher.New(sess.Store).Activate(); err != nil {
		return fmt.Errorf("failed to toggle theme: %w", err)
	}
	return printMode(cmd)
}

func printMode(cmd *cobra.Command) error {
	result, err := currentMode()
	if err != nil {
		return err
	}

	line := fmt.Sprintf("Theme set to %s", result.Mode)
	if result.Mode == model.ModeSystem {
		line += fmt.Sprintf(" (%s)", result.Appearance)
	}
	if sess.Store.Degraded() {
		line += ", not saved"
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
	return err
}
