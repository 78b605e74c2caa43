// pkg/ingress/finalize.go
package ingress

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// HashSeparator joins hash-participating field values before digesting.
// The ASCII unit separator does not occur in source data, so two adjacent
// fields can never collapse into one another.
const HashSeparator = "\x1f"

// KeySeparator joins natural-key field values into the sortable key
const KeySeparator = "|"

// finalized pairs canonical values with their provenance line
type finalized struct {
	values map[string]string
	line   int
}

// Finalize hashes and sorts accepted rows into canonical records. The hash
// covers only hash-participating fields in schema-declared order, so
// identical logical rows hash identically regardless of when or where they
// were parsed; output is sorted ascending by natural key for a stable,
// diffable artifact.
func Finalize(rows []finalized, contract *model.SchemaContract) []model.CanonicalRecord {
	keyFields := contract.NaturalKeyFields()
	hashFields := contract.HashFields()

	records := make([]model.CanonicalRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.CanonicalRecord{
			Dataset: contract.Dataset,
			Values:  row.values,
			Key:     joinFields(row.values, keyFields, KeySeparator),
			Hash:    hashRow(row.values, hashFields),
			Line:    row.line,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Key != records[j].Key {
			return records[i].Key < records[j].Key
		}
		return records[i].Line < records[j].Line
	})
	return records
}

func joinFields(values map[string]string, fields []string, sep string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = values[f]
	}
	return strings.Join(parts, sep)
}

func hashRow(values map[string]string, hashFields []string) string {
	sum := sha256.Sum256([]byte(joinFields(values, hashFields, HashSeparator)))
	return hex.EncodeToString(sum[:])
}
