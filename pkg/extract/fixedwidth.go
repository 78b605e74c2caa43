// pkg/extract/fixedwidth.go
package extract

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// FixedWidth slices layout-declared column spans out of each data line.
// Blank lines, lines shorter than the layout's minimum length, and lines
// failing the data-line pattern are skipped as banner text, never emitted
// as malformed rows. Fields marked carried forward-fill from the last
// non-blank value, which handles wrapped group labels on continuation rows.
func FixedWidth(text string, lay *model.Layout, logger *zap.Logger) ([]model.RawRecord, error) {
	if lay == nil {
		return nil, errors.New("layout cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	names := lay.FieldNames()
	lines := splitLines(text)
	records := make([]model.RawRecord, 0, len(lines))
	carry := make(map[string]string)
	skipped := 0

	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" || len(line) < lay.MinLineLength || !lay.MatchesDataLine(line) {
			skipped++
			continue
		}

		values := make(map[string]string, len(lay.Fields))
		for _, field := range lay.Fields {
			start, end := field.Start, field.End
			if start > len(line) {
				start = len(line)
			}
			if end > len(line) {
				end = len(line)
			}
			v := strings.TrimSpace(line[start:end])
			if field.Carried {
				if v == "" {
					v = carry[field.Name]
				} else {
					carry[field.Name] = v
				}
			}
			values[field.Name] = v
		}
		records = append(records, model.RawRecord{Columns: names, Values: values, Line: lineNo})
	}

	logger.Info("Fixed-width extraction complete",
		zap.String("dataset", lay.Dataset),
		zap.String("vintage", lay.Vintage),
		zap.Int("rows", len(records)),
		zap.Int("skippedLines", skipped))
	return records, nil
}

// splitLines normalizes line endings and splits, dropping a trailing
// empty segment
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
