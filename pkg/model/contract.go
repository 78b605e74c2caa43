// pkg/model/contract.go
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates the canonical types a contract field can declare
type FieldType string

const (
	FieldString     FieldType = "string"
	FieldNumeric    FieldType = "numeric"
	FieldIdentifier FieldType = "identifier"
	FieldDate       FieldType = "date"
)

// Band declares the two-threshold range for a numeric field: a narrow
// "expected" band whose breach warns, and a wide "plausible" band whose
// breach blocks. Nil bounds are open.
type Band struct {
	ExpectedMin  *float64
	ExpectedMax  *float64
	PlausibleMin *float64
	PlausibleMax *float64
}

// RowCountBand is the two-threshold check on accepted row counts. A zero
// max means unbounded, so the same validator serves small test fixtures
// and full production extracts.
type RowCountBand struct {
	ExpectedMin  int
	ExpectedMax  int
	PlausibleMin int
	PlausibleMax int
}

// FieldSpec declares one field of a schema contract
type FieldSpec struct {
	Name       string
	Type       FieldType
	Nullable   bool
	Precision  int  // decimal places for numeric fields
	PadWidth   int  // zero-pad width for identifier fields
	NaturalKey bool // participates in the natural-key tuple
	InHash     bool // participates in the content hash
	Domain     []string
	Range      *Band
	// DateFormats lists accepted layouts for date fields; empty means the
	// default set. DeriveFromVintage fills a blank date field from the run
	// metadata's source vintage date instead of rejecting the row.
	DateFormats       []string
	DeriveFromVintage bool
}

// DuplicatePolicy declares how duplicate natural keys are handled
type DuplicatePolicy string

const (
	// DuplicateBlock fails the whole batch on any duplicate key
	DuplicateBlock DuplicatePolicy = "block"
	// DuplicateQuarantine quarantines the offending rows and keeps the rest
	DuplicateQuarantine DuplicatePolicy = "quarantine"
)

// SchemaContract declares, per dataset, the field set with types,
// nullability, precision, natural key, and hash participation
type SchemaContract struct {
	Dataset    string
	Fields     []FieldSpec
	Duplicates DuplicatePolicy
	RowCount   RowCountBand
	// AnchorTokens drive dynamic header discovery in delimited and
	// spreadsheet extracts: the header row is the first row containing at
	// least two of these tokens.
	AnchorTokens []string
	// QuarantineOnWarn routes WARN-severity rows to quarantine instead of
	// log-only. The batch still succeeds either way.
	QuarantineOnWarn bool
}

// Field returns the spec for a field name (case-insensitive), or nil
func (c *SchemaContract) Field(name string) *FieldSpec {
	lowered := strings.ToLower(name)
	for i := range c.Fields {
		if strings.ToLower(c.Fields[i].Name) == lowered {
			return &c.Fields[i]
		}
	}
	return nil
}

// NaturalKeyFields returns the natural-key field names in declared order
func (c *SchemaContract) NaturalKeyFields() []string {
	var out []string
	for _, f := range c.Fields {
		if f.NaturalKey {
			out = append(out, f.Name)
		}
	}
	return out
}

// HashFields returns the hash-participating field names in declared order
func (c *SchemaContract) HashFields() []string {
	var out []string
	for _, f := range c.Fields {
		if f.InHash {
			out = append(out, f.Name)
		}
	}
	return out
}

// RequiredFields returns the non-nullable field names in declared order.
// Date fields derived from run metadata need no source column.
func (c *SchemaContract) RequiredFields() []string {
	var out []string
	for _, f := range c.Fields {
		if !f.Nullable && !f.DeriveFromVintage {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks the contract is internally consistent
func (c *SchemaContract) Validate() error {
	if c.Dataset == "" {
		return errors.New("contract dataset name is required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("contract %s declares no fields", c.Dataset)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		name := strings.ToLower(f.Name)
		if seen[name] {
			return fmt.Errorf("contract %s declares field %q twice", c.Dataset, f.Name)
		}
		seen[name] = true
		if f.Type == FieldNumeric && f.Precision < 0 {
			return fmt.Errorf("contract %s field %q has negative precision", c.Dataset, f.Name)
		}
	}
	if len(c.NaturalKeyFields()) == 0 {
		return fmt.Errorf("contract %s declares no natural-key fields", c.Dataset)
	}
	if len(c.HashFields()) == 0 {
		return fmt.Errorf("contract %s declares no hash-participating fields", c.Dataset)
	}
	switch c.Duplicates {
	case DuplicateBlock, DuplicateQuarantine:
	case "":
		return fmt.Errorf("contract %s declares no duplicate policy", c.Dataset)
	default:
		return fmt.Errorf("contract %s has unknown duplicate policy %q", c.Dataset, c.Duplicates)
	}
	return nil
}

// RunMetadata is the fixed required set of per-invocation metadata.
// Any missing field fails before parsing starts.
type RunMetadata struct {
	ReleaseID      string    // release identifier; also keys layout lookup
	SchemaID       string    // schema contract identifier
	VintageDate    time.Time // source vintage date
	SourceChecksum string
	SourceURI      string
}

// Validate reports every missing metadata field in one error
func (m RunMetadata) Validate() error {
	var missing []string
	if m.ReleaseID == "" {
		missing = append(missing, "release identifier")
	}
	if m.SchemaID == "" {
		missing = append(missing, "schema identifier")
	}
	if m.VintageDate.IsZero() {
		missing = append(missing, "source vintage date")
	}
	if m.SourceChecksum == "" {
		missing = append(missing, "source checksum")
	}
	if m.SourceURI == "" {
		missing = append(missing, "source URI")
	}
	if len(missing) > 0 {
		return &StructuralError{
			Reason: ReasonMissingRunMetadata,
			Detail: "missing run metadata: " + strings.Join(missing, ", "),
		}
	}
	return nil
}
