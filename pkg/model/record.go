// pkg/model/record.go
package model

import "fmt"

// Severity classifies the outcome of a validation or resolution check
type Severity int

const (
	// SeverityInfo is logged only and never affects the row
	SeverityInfo Severity = iota
	// SeverityWarn is logged; the row may be quarantined per dataset policy
	SeverityWarn
	// SeverityBlock rejects the row, or the whole batch for batch-scoped checks
	SeverityBlock
)

// String returns a string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityBlock:
		return "BLOCK"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Reason is a machine-readable code explaining why a row was rejected
// or why a file failed
type Reason string

const (
	ReasonEmptyInput           Reason = "empty_input"
	ReasonUnsupportedFormat    Reason = "unsupported_format"
	ReasonHeaderNotFound       Reason = "header_not_found"
	ReasonMissingRequiredField Reason = "missing_required_field"
	ReasonMissingRunMetadata   Reason = "missing_run_metadata"
	ReasonCastFailure          Reason = "cast_failure"
	ReasonRangeViolation       Reason = "range_violation"
	ReasonCategoricalViolation Reason = "categorical_violation"
	ReasonDuplicateKey         Reason = "duplicate_natural_key"
	ReasonRowCountOutOfBand    Reason = "row_count_out_of_band"
	ReasonResolutionNotFound   Reason = "resolution_not_found"
	ReasonResolutionAmbiguous  Reason = "resolution_ambiguous"
)

// RawRecord is an ordered mapping of field name to raw text, produced by
// extraction. It carries the source line number for provenance and is
// discarded after normalization except inside reject records.
type RawRecord struct {
	Columns []string          // column order as extracted
	Values  map[string]string // column name -> raw text
	Line    int               // 1-based source line (or row) number
}

// Get returns the raw value for a column, or "" when absent
func (r RawRecord) Get(col string) string {
	return r.Values[col]
}

// Clone returns a deep copy so rewrites never alias the original
func (r RawRecord) Clone() RawRecord {
	cols := make([]string, len(r.Columns))
	copy(cols, r.Columns)
	vals := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		vals[k] = v
	}
	return RawRecord{Columns: cols, Values: vals, Line: r.Line}
}

// CanonicalRecord is a typed, canonicalized, hashed row. The content hash
// is a pure function of the hash-participating fields in schema-declared
// order; provenance fields never affect it.
type CanonicalRecord struct {
	Dataset string
	Values  map[string]string // field name -> canonical textual form
	Key     string            // natural-key tuple, joined
	Hash    string            // hex SHA-256 over hash-participating fields
	Line    int               // source line for provenance
}

// Get returns the canonical value for a field, or "" when absent
func (c CanonicalRecord) Get(field string) string {
	return c.Values[field]
}

// RejectRecord preserves a rejected row for operator triage. It retains the
// original raw values plus a machine-readable reason and a human-readable
// explanation; rejected rows are never silently dropped.
type RejectRecord struct {
	Raw        RawRecord
	Reason     Reason
	Severity   Severity
	Field      string   // offending field, when row-level
	Value      string   // offending original value, when row-level
	Message    string   // human-readable explanation
	Candidates []string // tied or best resolution candidates, sorted
}

// NewReject creates a reject record for a raw row
func NewReject(raw RawRecord, reason Reason, severity Severity, message string) RejectRecord {
	return RejectRecord{
		Raw:      raw.Clone(),
		Reason:   reason,
		Severity: severity,
		Message:  message,
	}
}

// WithField attaches the offending field and its original value
func (r RejectRecord) WithField(field, value string) RejectRecord {
	r.Field = field
	r.Value = value
	return r
}

// WithCandidates attaches resolution candidates (callers pass them sorted)
func (r RejectRecord) WithCandidates(candidates []string) RejectRecord {
	r.Candidates = candidates
	return r
}

// String returns a formatted one-line summary for logs
func (r RejectRecord) String() string {
	s := fmt.Sprintf("[%s] %s", r.Severity, r.Reason)
	if r.Field != "" {
		s += fmt.Sprintf(" field=%s value=%q", r.Field, r.Value)
	}
	if r.Raw.Line > 0 {
		s += fmt.Sprintf(" line=%d", r.Raw.Line)
	}
	if r.Message != "" {
		s += ": " + r.Message
	}
	return s
}
