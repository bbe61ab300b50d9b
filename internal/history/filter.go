package history

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/themepref/internal/model"
)

// FilterOptions specifies criteria for listing transitions.
type FilterOptions struct {
	Since   time.Duration // only transitions newer than now-since (0=all)
	Trigger model.Trigger // exact match on trigger ("" = any)
	Source  string        // exact match on source ("" = any)
	Limit   int           // newest N after filtering (0=unlimited)
	Newest  bool          // newest first
}

// Filter returns the transitions matching opts. The input is not modified.
func Filter(ts []model.Transition, opts FilterOptions) []model.Transition {
	var cutoff time.Time
	if opts.Since > 0 {
		cutoff = time.Now().Add(-opts.Since)
	}

	result := make([]model.Transition, 0, len(ts))
	for _, t := range ts {
		if !cutoff.IsZero() && t.Time().Before(cutoff) {
			continue
		}
		if opts.Trigger != "" && t.Trigger != opts.Trigger {
			continue
		}
		if opts.Source != "" && t.Source != opts.Source {
			continue
		}
		result = append(result, t)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[len(result)-opts.Limit:]
	}
	if opts.Newest {
		slices.Reverse(result)
	}
	return result
}

// Last returns the most recent transition, if any.
func Last(ts []model.Transition) (model.Transition, bool) {
	if len(ts) == 0 {
		return model.Transition{}, false
	}
	return ts[len(ts)-1], true
}

// ParseAge parses a lookback duration. In addition to Go durations it
// accepts day (7d) and week (2w) suffixes. "" and "0" mean no limit.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if n, found := strings.CutSuffix(s, suffix); found {
			v, err := strconv.Atoi(n)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid duration: %s", s)
			}
			return time.Duration(v) * unit, nil
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}
