// Package output provides output formatters for theme transitions and
// structured command results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/themepref/internal/model"
)

// Formatter formats transitions for output.
type Formatter interface {
	// Format writes formatted transitions to the writer.
	Format(w io.Writer, transitions []model.Transition) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// ValidFormats returns all supported format names.
func ValidFormats() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML}
}

// ParseFormat parses a format name. "" means plain.
func ParseFormat(s string) (FormatType, error) {
	switch FormatType(s) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: %v", s, ValidFormats())
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string           // Custom template for plain format
	ShowTime bool             // Show relative time
	Now      func() time.Time // nil = time.Now
}

// DefaultFormatterOptions returns the defaults used by the history command.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{ShowTime: true}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return encoderFormatter{format: FormatJSON}, nil
	case FormatYAML:
		return encoderFormatter{format: FormatYAML}, nil
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	default:
		return nil, fmt.Errorf("unknown format %q, must be one of: %v", format, ValidFormats())
	}
}

// encoderFormatter writes transitions as a single JSON or YAML document.
type encoderFormatter struct {
	format FormatType
}

func (f encoderFormatter) Format(w io.Writer, transitions []model.Transition) error {
	if transitions == nil {
		transitions = []model.Transition{}
	}
	return Encode(w, f.format, transitions)
}

// Encode writes v as an indented JSON or YAML document.
func Encode(w io.Writer, format FormatType, v any) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("format %q does not support structured output", format)
	}
}

// EncodeLine writes v as compact single-line JSON, for streaming output.
func EncodeLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
