// pkg/normalize/header.go
package normalize

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Header normalizes a raw column header: strips byte-order-mark and
// non-breaking-space artifacts, collapses whitespace runs, lowercases,
// and joins words with underscores.
func Header(s string) string {
	s = strings.ReplaceAll(s, "\uFEFF", "")
	s = strings.ReplaceAll(s, "\u00A0", " ")
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, "_")
}

// HeaderMapper renames extracted columns to contract field names through a
// per-dataset alias table (many-to-one). The table is copied at
// construction and read-only thereafter.
type HeaderMapper struct {
	aliases map[string]string
	logger  *zap.Logger
}

// NewHeaderMapper creates a mapper over an alias table keyed by normalized
// header text
func NewHeaderMapper(aliases map[string]string, logger *zap.Logger) *HeaderMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	copied := make(map[string]string, len(aliases))
	for k, v := range aliases {
		copied[Header(k)] = v
	}
	return &HeaderMapper{aliases: copied, logger: logger}
}

// Rewrite renames every record's columns through the alias table. Unmapped
// headers pass through as lowercase-with-underscores and are logged once
// per file so renamed source columns surface for review; they are not
// fatal.
func (m *HeaderMapper) Rewrite(records []model.RawRecord) []model.RawRecord {
	if len(records) == 0 {
		return records
	}

	mapping := make(map[string]string, len(records[0].Columns))
	for _, col := range records[0].Columns {
		normalized := Header(col)
		if mapped, ok := m.aliases[normalized]; ok {
			mapping[col] = mapped
			continue
		}
		mapping[col] = normalized
		m.logger.Info("Unmapped column header passed through",
			zap.String("header", col),
			zap.String("normalized", normalized))
	}

	out := make([]model.RawRecord, len(records))
	for i, rec := range records {
		cols := make([]string, len(rec.Columns))
		vals := make(map[string]string, len(rec.Values))
		for j, col := range rec.Columns {
			name := mapping[col]
			cols[j] = name
			vals[name] = rec.Values[col]
		}
		out[i] = model.RawRecord{Columns: cols, Values: vals, Line: rec.Line}
	}
	return out
}

// VerifyRequired checks the full required field set is present after
// aliasing. Any missing field rejects the whole file with an explicit list;
// there are no partial canonical rows.
func VerifyRequired(columns []string, contract *model.SchemaContract) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[strings.ToLower(c)] = true
	}

	var missing []string
	for _, name := range contract.RequiredFields() {
		if !present[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &model.StructuralError{
			Reason: model.ReasonMissingRequiredField,
			Detail: fmt.Sprintf("dataset %s missing required fields after header mapping: %s",
				contract.Dataset, strings.Join(missing, ", ")),
		}
	}
	return nil
}
