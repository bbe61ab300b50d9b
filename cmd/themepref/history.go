package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/history"
	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/output"
)

var historyOpts struct {
	limit    int
	since    string
	trigger  string
	source   string
	format   string
	template string
	prune    bool
	keep     int
	clear    bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded theme changes",
	Long: `Show the journal of theme changes, newest first.

Examples:
  # Last 20 changes
  themepref history

  # Changes made from the desktop switch in the last week
  themepref history --since 7d --source themeprefd

  # Custom line format
  themepref history --template '{{.RelativeTime}} {{.Transition.To}}'

  # Keep only the configured number of entries
  themepref history --prune`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20,
		"Maximum number of entries to show (0=unlimited)")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only show changes from the last duration (e.g., 1h, 7d, 2w)")
	historyCmd.Flags().StringVar(&historyOpts.trigger, "trigger", "",
		"Only show changes with this trigger (user, sync)")
	historyCmd.Flags().StringVar(&historyOpts.source, "source", "",
		"Only show changes from this source (cli, tui, themeprefd)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for plain output")
	historyCmd.Flags().BoolVar(&historyOpts.prune, "prune", false,
		"Remove old entries instead of listing")
	historyCmd.Flags().IntVar(&historyOpts.keep, "keep", 0,
		"Entries to keep with --prune (default: history.keep from config)")
	historyCmd.Flags().BoolVar(&historyOpts.clear, "clear", false,
		"Remove every entry instead of listing")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if sess.Journal == nil {
		return errors.New("theme history is disabled or unavailable")
	}

	switch {
	case historyOpts.clear:
		if err := sess.Journal.Clear(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cleared theme history")
		return err

	case historyOpts.prune:
		keep := historyOpts.keep
		if keep == 0 {
			keep = cfg.History.Keep
		}
		if keep == 0 {
			return errors.New("nothing to prune: history.keep is unlimited, pass --keep")
		}
		removed, err := sess.Journal.Prune(keep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries, kept the newest %d\n", removed, keep)
		return err
	}

	format, err := output.ParseFormat(historyOpts.format)
	if err != nil {
		return err
	}
	since, err := history.ParseAge(historyOpts.since)
	if err != nil {
		return err
	}

	ts, err := sess.Journal.Load()
	if err != nil {
		return err
	}

	ts = history.Filter(ts, history.FilterOptions{
		Since:   since,
		Trigger: model.Trigger(historyOpts.trigger),
		Source:  historyOpts.source,
		Limit:   historyOpts.limit,
		Newest:  true,
	})

	opts := output.DefaultFormatterOptions()
	opts.Template = historyOpts.template
	formatter, err := output.NewFormatter(format, opts)
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), ts)
}
