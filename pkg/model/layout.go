// pkg/model/layout.go
package model

import (
	"fmt"
	"regexp"
)

// LayoutField declares one fixed-width column span. Offsets are half-open:
// Start is inclusive, End exclusive.
type LayoutField struct {
	Name string `yaml:"name"`
	Start int   `yaml:"start"`
	End   int   `yaml:"end"`
	// Carried marks a continuation-row field: a blank value is forward-filled
	// with the last non-blank value seen for it (wrapped group labels).
	Carried bool `yaml:"carried,omitempty"`
}

// Layout is a versioned declaration of fixed-width column spans for one
// dataset vintage. Layouts are immutable once published; any change is a
// new version.
type Layout struct {
	Dataset string `yaml:"dataset"`
	Vintage string `yaml:"vintage"`
	// MinLineLength guards against banners and wrapped footers: shorter
	// lines are skipped, never emitted as malformed data rows.
	MinLineLength int `yaml:"min_line_length"`
	// DataLinePattern identifies the first real data line; non-matching
	// lines are treated as banner text.
	DataLinePattern string        `yaml:"data_line_pattern"`
	Fields          []LayoutField `yaml:"fields"`

	dataLineRe *regexp.Regexp
}

// Compile validates the layout and prepares the data-line matcher
func (l *Layout) Compile() error {
	if l.Dataset == "" || l.Vintage == "" {
		return fmt.Errorf("layout requires dataset and vintage, got (%q, %q)", l.Dataset, l.Vintage)
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout %s/%s declares no fields", l.Dataset, l.Vintage)
	}
	for _, f := range l.Fields {
		if f.Start < 0 || f.End <= f.Start {
			return fmt.Errorf("layout %s/%s field %q has invalid span [%d,%d)",
				l.Dataset, l.Vintage, f.Name, f.Start, f.End)
		}
	}
	if l.DataLinePattern != "" {
		re, err := regexp.Compile(l.DataLinePattern)
		if err != nil {
			return fmt.Errorf("layout %s/%s data line pattern: %w", l.Dataset, l.Vintage, err)
		}
		l.dataLineRe = re
	}
	return nil
}

// MatchesDataLine reports whether a line looks like a real data line.
// A layout without a pattern accepts every line that passed the length guard.
func (l *Layout) MatchesDataLine(line string) bool {
	if l.dataLineRe == nil {
		return true
	}
	return l.dataLineRe.MatchString(line)
}

// FieldNames returns the field names in declared column order
func (l *Layout) FieldNames() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}
