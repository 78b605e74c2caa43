// pkg/extract/delimited.go
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// delimiterCandidates are tried by frequency on the sniffed header region
var delimiterCandidates = []rune{',', '\t', '|', ';'}

// Delimited parses delimiter-separated text into raw records. The header
// row is discovered dynamically via anchor tokens rather than a fixed skip
// count, and the delimiter is sniffed from the scan window.
func Delimited(text string, anchors []string, logger *zap.Logger) ([]model.RawRecord, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	delim := sniffDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// records are read one at a time so each row's true source line is
	// known; a quoted field spanning lines would desync a plain counter
	var rows [][]string
	var lines []int
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.StructuralError{
				Reason: model.ReasonUnsupportedFormat,
				Detail: fmt.Sprintf("malformed delimited content: %v", err),
			}
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}
	if len(rows) == 0 {
		return nil, &model.StructuralError{
			Reason: model.ReasonEmptyInput,
			Detail: "delimited content has no rows",
		}
	}

	headerIdx, found := findHeaderRow(rows, anchors)
	if !found {
		return nil, &model.StructuralError{
			Reason: model.ReasonHeaderNotFound,
			Detail: fmt.Sprintf("no row in the first %d contains at least two anchor tokens %v",
				headerScanLimit, anchors),
		}
	}

	records := rowsToRecords(rows, headerIdx, func(i int) int { return lines[i] })
	logger.Info("Delimited extraction complete",
		zap.String("delimiter", string(delim)),
		zap.Int("headerRow", headerIdx+1),
		zap.Int("rows", len(records)))
	return records, nil
}

// sniffDelimiter picks the candidate occurring most often in the scan
// window. Comma wins ties, matching the dominant source format.
func sniffDelimiter(text string) rune {
	window := text
	if idx := nthLineEnd(text, headerScanLimit); idx > 0 {
		window = text[:idx]
	}

	best := ','
	bestCount := 0
	for _, candidate := range delimiterCandidates {
		count := strings.Count(window, string(candidate))
		if count > bestCount {
			best = candidate
			bestCount = count
		}
	}
	return best
}

func nthLineEnd(text string, n int) int {
	count := 0
	for i, r := range text {
		if r == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}
