// pkg/validate/engine.go
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Finding is one validation outcome for a row or a batch. INFO findings are
// logged only; WARN findings may quarantine the row per dataset policy;
// BLOCK findings reject the row, or the batch for batch-scoped checks.
type Finding struct {
	Severity model.Severity
	Reason   model.Reason
	Field    string
	Value    string
	Message  string
}

// Engine runs the tiered checks declared on one schema contract. It holds
// no mutable state across rows, so a single instance serves a whole run.
type Engine struct {
	contract *model.SchemaContract
	logger   *zap.Logger
}

// New creates a validation engine for a contract
func New(contract *model.SchemaContract, logger *zap.Logger) (*Engine, error) {
	if contract == nil {
		return nil, errors.New("schema contract cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{contract: contract, logger: logger}, nil
}

// CheckCategorical validates closed-domain fields against the raw record,
// before any narrower-type casting, so a violation reports the original
// offending value rather than a mangled cast of it.
func (e *Engine) CheckCategorical(raw model.RawRecord) []Finding {
	var findings []Finding
	for _, field := range e.contract.Fields {
		if len(field.Domain) == 0 {
			continue
		}
		value := strings.TrimSpace(raw.Get(field.Name))
		if value == "" {
			continue
		}
		if !inDomain(value, field.Domain) {
			findings = append(findings, Finding{
				Severity: model.SeverityBlock,
				Reason:   model.ReasonCategoricalViolation,
				Field:    field.Name,
				Value:    value,
				Message: fmt.Sprintf("value %q not in domain %v for field %s",
					value, field.Domain, field.Name),
			})
		}
	}
	return findings
}

func inDomain(value string, domain []string) bool {
	for _, d := range domain {
		if strings.EqualFold(value, d) {
			return true
		}
	}
	return false
}

// CheckRanges validates numeric fields on their canonical values using two
// thresholds each: a breach of the narrow expected band warns, a breach of
// the wide plausible band blocks. Novel-but-valid values pass while
// corrupted data is caught.
func (e *Engine) CheckRanges(values map[string]string) []Finding {
	var findings []Finding
	for _, field := range e.contract.Fields {
		if field.Type != model.FieldNumeric || field.Range == nil {
			continue
		}
		text := values[field.Name]
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			// canonicalization runs first, so this indicates a wiring bug
			// rather than bad data; surface it loudly
			findings = append(findings, Finding{
				Severity: model.SeverityBlock,
				Reason:   model.ReasonRangeViolation,
				Field:    field.Name,
				Value:    text,
				Message:  fmt.Sprintf("non-numeric canonical value %q for field %s", text, field.Name),
			})
			continue
		}

		band := field.Range
		if outside(v, band.PlausibleMin, band.PlausibleMax) {
			findings = append(findings, Finding{
				Severity: model.SeverityBlock,
				Reason:   model.ReasonRangeViolation,
				Field:    field.Name,
				Value:    text,
				Message: fmt.Sprintf("field %s value %s outside plausible band [%s, %s]",
					field.Name, text, boundText(band.PlausibleMin), boundText(band.PlausibleMax)),
			})
			continue
		}
		if outside(v, band.ExpectedMin, band.ExpectedMax) {
			findings = append(findings, Finding{
				Severity: model.SeverityWarn,
				Reason:   model.ReasonRangeViolation,
				Field:    field.Name,
				Value:    text,
				Message: fmt.Sprintf("field %s value %s outside expected band [%s, %s]",
					field.Name, text, boundText(band.ExpectedMin), boundText(band.ExpectedMax)),
			})
		}
	}
	return findings
}

func outside(v float64, min, max *float64) bool {
	if min != nil && v < *min {
		return true
	}
	if max != nil && v > *max {
		return true
	}
	return false
}

func boundText(b *float64) string {
	if b == nil {
		return "-"
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}

// CheckRowCount applies the two-threshold pattern to the accepted row
// count. Parameterized thresholds let the same validator serve small test
// fixtures and full production extracts; there is no environment-
// conditioned bypass.
func (e *Engine) CheckRowCount(n int) *Finding {
	band := e.contract.RowCount
	if countOutside(n, band.PlausibleMin, band.PlausibleMax) {
		return &Finding{
			Severity: model.SeverityBlock,
			Reason:   model.ReasonRowCountOutOfBand,
			Message: fmt.Sprintf("accepted row count %d outside plausible band [%d, %s]",
				n, band.PlausibleMin, countBoundText(band.PlausibleMax)),
		}
	}
	if countOutside(n, band.ExpectedMin, band.ExpectedMax) {
		return &Finding{
			Severity: model.SeverityWarn,
			Reason:   model.ReasonRowCountOutOfBand,
			Message: fmt.Sprintf("accepted row count %d outside expected band [%d, %s]",
				n, band.ExpectedMin, countBoundText(band.ExpectedMax)),
		}
	}
	return nil
}

// a zero max means unbounded
func countOutside(n, min, max int) bool {
	if n < min {
		return true
	}
	if max > 0 && n > max {
		return true
	}
	return false
}

func countBoundText(max int) string {
	if max == 0 {
		return "-"
	}
	return strconv.Itoa(max)
}

// Duplicates returns the indexes of rows whose natural key already appeared
// earlier in the batch. The first occurrence of each key is kept; how the
// offenders are handled (block the batch or quarantine the rows) is the
// dataset's declared policy, applied by the caller.
func (e *Engine) Duplicates(keys []string) []int {
	seen := make(map[string]bool, len(keys))
	var dups []int
	for i, k := range keys {
		if seen[k] {
			dups = append(dups, i)
			continue
		}
		seen[k] = true
	}
	return dups
}
