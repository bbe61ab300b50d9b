package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/themepref/internal/model"
	"github.com/jmylchreest/themepref/internal/switcher"
)

// PlainFormatter formats transitions as one line each.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a plain text formatter. A custom template that
// fails to parse is an error.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(f.templateFuncs()).Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f.template = tmpl
	}

	return f, nil
}

// templateData is the value passed to custom templates.
type templateData struct {
	Index        int
	Transition   *model.Transition
	RelativeTime string
}

func (f *PlainFormatter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"reltime": func(ts int64) string {
			return relativeTime(ts, f.opts.now())
		},
		"glyph": glyph,
	}
}

// Format writes transitions as plain text.
func (f *PlainFormatter) Format(w io.Writer, transitions []model.Transition) error {
	for i := range transitions {
		if err := f.formatTransition(w, i+1, &transitions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatTransition(w io.Writer, index int, t *model.Transition) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Transition:   t,
			RelativeTime: relativeTime(t.Timestamp, f.opts.now()),
		}
		if err := f.template.Execute(w, data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	sb.WriteString(t.Time().Local().Format(time.DateTime))
	sb.WriteString("  ")

	from := string(t.From)
	if from == "" {
		from = "-"
	}
	fmt.Fprintf(&sb, "%-6s -> %-6s %s %-5s", from, t.To, glyph(t.Resolved), t.Resolved)
	fmt.Fprintf(&sb, "  %s", t.Trigger)
	if t.Source != "" {
		fmt.Fprintf(&sb, "/%s", t.Source)
	}
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", relativeTime(t.Timestamp, f.opts.now()))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func glyph(a model.Appearance) string {
	return switcher.StateFor(a).Glyph
}

// relativeTime formats a Unix timestamp relative to now.
func relativeTime(timestamp int64, now time.Time) string {
	if timestamp == 0 {
		return "unknown"
	}
	return RelativeTime(time.Unix(timestamp, 0), now)
}

// RelativeTime formats t relative to now, e.g. "3 minutes ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if d := now.Sub(t); d >= 0 && d < time.Second {
		return "now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
