// Package labdata turns instrument "column-pair" text exports into wide
// tables: one column per label, one row per source file.
package labdata

import (
	"os"
	"strings"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

// LineKind tags the result of parsing one line of an instrument file.
type LineKind int

const (
	LinePair LineKind = iota
	LineBlank
	LineUnparseable
)

func (k LineKind) String() string {
	switch k {
	case LinePair:
		return "pair"
	case LineBlank:
		return "blank"
	default:
		return "unparseable"
	}
}

// Line is one parsed line. Label and Value are only set for LinePair.
type Line struct {
	Number int
	Raw    string
	Kind   LineKind
	Label  string
	Value  string
}

// Pair is a label and its value.
type Pair struct {
	Label string
	Value string
}

// ParseLine classifies a single line. A pair is "label<TAB>value"; trailing
// tabs after the value are tolerated, any other tab makes the line unparseable.
// Only a line without a tab can be blank.
func ParseLine(number int, raw string) Line {
	raw = strings.TrimSuffix(raw, "\r")
	line := Line{Number: number, Raw: raw}

	label, value, ok := strings.Cut(raw, "\t")
	if !ok {
		if strings.TrimSpace(raw) == "" {
			line.Kind = LineBlank
		} else {
			line.Kind = LineUnparseable
		}
		return line
	}
	value = strings.TrimRight(value, "\t")
	if strings.Contains(value, "\t") {
		line.Kind = LineUnparseable
		return line
	}

	line.Kind = LinePair
	line.Label = label
	line.Value = value
	return line
}

// RawRecord is one instrument file split into its pairs.
type RawRecord struct {
	Path        string
	Pairs       []Pair
	Unparseable []Line
}

// Labels returns the label column in line order.
func (r *RawRecord) Labels() []string {
	out := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		out[i] = p.Label
	}
	return out
}

// Values returns the value column in line order.
func (r *RawRecord) Values() []string {
	out := make([]string, len(r.Pairs))
	for i, p := range r.Pairs {
		out[i] = p.Value
	}
	return out
}

// ParseText parses the full content of an instrument file.
func ParseText(path, text string) *RawRecord {
	rec := &RawRecord{Path: path}
	for i, raw := range strings.Split(text, "\n") {
		line := ParseLine(i+1, raw)
		switch line.Kind {
		case LinePair:
			rec.Pairs = append(rec.Pairs, Pair{Label: line.Label, Value: line.Value})
		case LineUnparseable:
			rec.Unparseable = append(rec.Unparseable, line)
		}
	}
	return rec
}

// ParseRecord reads a whole file and parses it.
func ParseRecord(path string) (*RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.FileAccess(path, err)
	}
	return ParseText(path, string(data)), nil
}
