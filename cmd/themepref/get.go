package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/output"
)

var getOpts struct {
	resolved bool
	format   string
}

// modeResult is the structured form of get and set output.
type modeResult struct {
	Mode       model.Mode       `json:"mode" yaml:"mode"`
	Appearance model.Appearance `json:"appearance" yaml:"appearance"`
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the theme preference",
	Long: `Print the stored theme preference.

With --resolved, prints the appearance the preference resolves to right now:
light or dark, following the desktop when the preference is system.

Examples:
  # Print light, dark or system
  themepref get

  # Print light or dark
  themepref get --resolved

  # Both values as JSON
  themepref get --format json`,
	Args: cobra.NoArgs,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().BoolVarP(&getOpts.resolved, "resolved", "r", false,
		"Print the resolved appearance instead of the mode")
	getCmd.Flags().StringVarP(&getOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
}

func runGet(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(getOpts.format)
	if err != nil {
		return err
	}

	result, err := currentMode()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format != output.FormatPlain {
		return output.Encode(w, format, result)
	}

	if getOpts.resolved {
		_, err = fmt.Fprintln(w, result.Appearance)
	} else {
		_, err = fmt.Fprintln(w, result.Mode)
	}
	return err
}

func currentMode() (modeResult, error) {
	mode, err := sess.Store.Mode()
	if err != nil {
		return modeResult{}, err
	}
	appearance, err := sess.Store.ResolvedAppearance()
	if err != nil {
		return modeResult{}, err
	}
	return modeResult{Mode: mode, Appearance: appearance}, nil
}
