package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive theme switch",
	Long: `Launch the interactive terminal theme switch.

The switch redraws whenever the preference changes, including changes made
by other processes and by the desktop while following the system.

Key bindings:
  space, enter, t   Toggle between light and dark
  l, d, s           Set light, dark or follow system
  ?                 Show help
  q, ctrl+c         Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	stop := startSync()
	defer stop()

	return tui.Run(tui.RunOptions{
		Store: sess.Store,
		Options: tui.Options{
			ShowHelp:   cfg.TUI.ShowHelp,
			SignalName: sess.Signal.Name(),
			LastChange: sess.LastChange,
		},
	})
}
