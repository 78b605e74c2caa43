// pkg/extract/header.go
package extract

import (
	"strings"

	"github.com/refdata-io/table-ingress/pkg/model"
	"github.com/refdata-io/table-ingress/pkg/normalize"
)

// headerScanLimit bounds dynamic header discovery. Real exports insert a
// variable number of title and blank rows, so extractors scan for the
// header instead of assuming a fixed skip count.
const headerScanLimit = 15

// findHeaderRow returns the index of the first row containing at least two
// anchor tokens within the scan window. Tokens match as substrings of the
// normalized cell text.
func findHeaderRow(rows [][]string, anchors []string) (int, bool) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		hits := 0
		for _, anchor := range anchors {
			needle := normalize.Header(anchor)
			for _, cell := range rows[i] {
				if strings.Contains(normalize.Header(cell), needle) {
					hits++
					break
				}
			}
		}
		if hits >= 2 {
			return i, true
		}
	}
	return 0, false
}

// rowsToRecords turns a header row plus data rows into raw records keyed by
// the trimmed header text. Short rows pad with blanks; surplus cells beyond
// the header width are dropped. Fully blank rows are skipped.
func rowsToRecords(rows [][]string, headerIdx int, lineOf func(i int) int) []model.RawRecord {
	header := make([]string, 0, len(rows[headerIdx]))
	for _, cell := range rows[headerIdx] {
		header = append(header, strings.TrimSpace(cell))
	}

	records := make([]model.RawRecord, 0, len(rows)-headerIdx-1)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		blank := true
		values := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" {
				continue
			}
			v := ""
			if j < len(row) {
				v = strings.TrimSpace(row[j])
			}
			if v != "" {
				blank = false
			}
			values[name] = v
		}
		if blank {
			continue
		}
		records = append(records, model.RawRecord{Columns: header, Values: values, Line: lineOf(i)})
	}
	return records
}
