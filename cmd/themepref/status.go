package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/output"
	"github.com/jmylchreest/themepref/internal/session"
	"github.com/jmylchreest/themepref/internal/switcher"
)

var statusOpts struct {
	waybar bool
	format string
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the preference, host signal and storage",
	Long: `Show the theme preference together with the desktop signal it resolves
against and where it is stored.

With --waybar, outputs Waybar's custom module JSON format:

  "custom/theme": {
    "exec": "themepref status --waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "themepref toggle"
  }

The output includes:
  - text: sun or moon glyph for the resolved appearance
  - alt: the stored mode (light, dark, system)
  - tooltip: mode, resolved appearance and last change
  - class: the resolved appearance, plus "degraded" when storage failed`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")
	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := sess.Status()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if statusOpts.waybar {
		return json.NewEncoder(w).Encode(waybarStatus(st, time.Now()))
	}

	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
	}
	if format != output.FormatPlain {
		return output.Encode(w, format, st)
	}
	return writeStatus(w, st, time.Now())
}

// waybarStatus creates a WaybarStatus from a session status.
func waybarStatus(st session.Status, now time.Time) WaybarStatus {
	class := st.Appearance.String()
	if st.Degraded {
		class += " degraded"
	}

	return WaybarStatus{
		Text:    switcher.StateFor(st.Appearance).Glyph,
		Alt:     st.Mode.String(),
		Tooltip: buildTooltip(st, now),
		Class:   class,
	}
}

// buildTooltip describes the status in a few short lines.
func buildTooltip(st session.Status, now time.Time) string {
	lines := []string{describeMode(st)}
	if !st.LastChange.IsZero() {
		lines = append(lines, "Changed "+output.RelativeTime(st.LastChange, now))
	}
	if st.Degraded {
		lines = append(lines, "Preference storage unavailable")
	}
	lines = append(lines, switcher.Label)
	return strings.Join(lines, "\n")
}

func describeMode(st session.Status) string {
	if st.Mode == model.ModeSystem {
		return fmt.Sprintf("Theme: system (%s)", st.Appearance)
	}
	return fmt.Sprintf("Theme: %s", st.Mode)
}

// writeStatus prints the status as aligned key/value lines.
func writeStatus(w io.Writer, st session.Status, now time.Time) error {
	storage := st.Backend
	if st.Path != "" {
		storage += " " + st.Path
	}
	if st.Degraded {
		storage += " (unavailable, in memory)"
	}

	changed := "never"
	if !st.LastChange.IsZero() {
		changed = output.RelativeTime(st.LastChange, now)
	}

	rows := [][2]string{
		{"mode", st.Mode.String()},
		{"appearance", st.Appearance.String()},
		{"signal", fmt.Sprintf("%s (%s)", st.Signal, st.Host)},
		{"storage", storage},
		{"key", st.StorageKey},
		{"changed", changed},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-11s %s\n", r[0]+":", r[1]); err != nil {
			return err
		}
	}
	return nil
}
