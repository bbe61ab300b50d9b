package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/output"
	"github.com/jmylchreest/themepref/internal/preference"
	"github.com/jmylchreest/themepref/internal/session"
)

var watchOpts struct {
	format string
}

// watchLine is one streamed event.
type watchLine struct {
	Mode       string `json:"mode"`
	Appearance string `json:"appearance"`
	Previous   string `json:"previous,omitempty"`
	Cause      string `json:"cause"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a line for every theme change",
	Long: `Print the current theme, then one line for every change until
interrupted.

Changes made by other processes (themepref set, the desktop switch) and
desktop color scheme changes while following the system are reported.

Plain lines are "<mode> <appearance> <cause>"; --format json prints one JSON
object per line.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOpts.format, "format", "f", "plain",
		"Output format (plain, json)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(watchOpts.format)
	if err != nil {
		return err
	}
	if format == output.FormatYAML {
		return fmt.Errorf("watch supports plain and json output")
	}

	stop := startSync()
	defer stop()

	return watchEvents(commandContext(cmd), sess, cmd.OutOrStdout(), format)
}

// watchEvents writes the current state and then every store event to w
// until ctx is done.
func watchEvents(ctx context.Context, s *session.Session, w io.Writer, format output.FormatType) error {
	events := make(chan preference.Event, 16)
	unsubscribe := s.Store.Subscribe(func(e preference.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	mode, err := s.Store.Mode()
	if err != nil {
		return err
	}
	appearance, err := s.Store.ResolvedAppearance()
	if err != nil {
		return err
	}
	if err := writeWatchLine(w, format, watchLine{
		Mode:       mode.String(),
		Appearance: appearance.String(),
		Cause:      "initial",
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			line := watchLine{
				Mode:       e.Mode.String(),
				Appearance: e.Appearance.String(),
				Previous:   e.Previous.String(),
				Cause:      e.Cause.String(),
			}
			if err := writeWatchLine(w, format, line); err != nil {
				return err
			}
		}
	}
}

func writeWatchLine(w io.Writer, format output.FormatType, line watchLine) error {
	if format == output.FormatJSON {
		return output.EncodeLine(w, line)
	}
	_, err := fmt.Fprintf(w, "%s %s %s\n", line.Mode, line.Appearance, line.Cause)
	return err
}
