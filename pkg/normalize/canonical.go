// pkg/normalize/canonical.go
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// defaultDateFormats are tried in order when a contract declares none
var defaultDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"20060102",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Canonicalizer casts raw row text into canonical, precision-fixed textual
// form per a schema contract. Each cast failure is isolated to its row: the
// caller gets a reject record back, never an aborted batch.
type Canonicalizer struct {
	contract *model.SchemaContract
	meta     model.RunMetadata
	logger   *zap.Logger
}

// NewCanonicalizer creates a canonicalizer for one run
func NewCanonicalizer(contract *model.SchemaContract, meta model.RunMetadata, logger *zap.Logger) (*Canonicalizer, error) {
	if contract == nil {
		return nil, errors.New("schema contract cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Canonicalizer{contract: contract, meta: meta, logger: logger}, nil
}

// Row canonicalizes a single raw record. On success it returns the field
// values in canonical textual form; on failure it returns a quarantine
// candidate carrying the offending field and original value.
func (c *Canonicalizer) Row(raw model.RawRecord) (map[string]string, *model.RejectRecord) {
	out := make(map[string]string, len(c.contract.Fields))

	for _, field := range c.contract.Fields {
		value := strings.TrimSpace(raw.Get(field.Name))

		if value == "" {
			if field.Type == model.FieldDate && field.DeriveFromVintage {
				out[field.Name] = c.meta.VintageDate.Format("2006-01-02")
				continue
			}
			if !field.Nullable {
				reject := model.NewReject(raw, model.ReasonCastFailure, model.SeverityBlock,
					fmt.Sprintf("required field %s is blank", field.Name)).
					WithField(field.Name, raw.Get(field.Name))
				return nil, &reject
			}
			out[field.Name] = ""
			continue
		}

		canonical, err := c.canonicalValue(value, field)
		if err != nil {
			reject := model.NewReject(raw, model.ReasonCastFailure, model.SeverityBlock, err.Error()).
				WithField(field.Name, value)
			return nil, &reject
		}
		out[field.Name] = canonical
	}

	return out, nil
}

// canonicalValue dispatches on the declared field type
func (c *Canonicalizer) canonicalValue(value string, field model.FieldSpec) (string, error) {
	switch field.Type {
	case model.FieldNumeric:
		canonical, err := CanonicalNumber(value, field.Precision)
		if err != nil {
			return "", &model.CastError{Field: field.Name, Value: value, Expected: "numeric", Err: err}
		}
		return canonical, nil

	case model.FieldIdentifier:
		// padding happens only after the blank filter above; zero-padding a
		// blank would produce misleading non-blank output
		return PadIdentifier(value, field.PadWidth), nil

	case model.FieldDate:
		formats := field.DateFormats
		if len(formats) == 0 {
			formats = defaultDateFormats
		}
		t, err := ParseDate(value, formats)
		if err != nil {
			return "", &model.CastError{Field: field.Name, Value: value, Expected: "date", Err: err}
		}
		return t.Format("2006-01-02"), nil

	case model.FieldString, "":
		return strings.Join(strings.Fields(value), " "), nil

	default:
		return "", &model.CastError{
			Field:    field.Name,
			Value:    value,
			Expected: string(field.Type),
			Err:      fmt.Errorf("unknown field type %q", field.Type),
		}
	}
}

// CanonicalNumber parses an integer-looking or pre-formatted-decimal string,
// quantizes to the declared precision with round-half-up, and renders back
// to text. Hashing operates on this textual form, never on binary floating
// point, so "1" and "1.000" under three-decimal precision both canonicalize
// to "1.000".
func CanonicalNumber(s string, precision int) (string, error) {
	cleaned := strings.ReplaceAll(s, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", errors.New("empty numeric value")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return "", fmt.Errorf("cannot parse %q as number", s)
	}

	pow := math.Pow10(precision)
	// the scaled value must fit an int64 or the conversion below wraps and
	// renders garbage that would be keyed and hashed as real data
	if math.IsInf(f, 0) || math.Abs(f)*pow >= float64(math.MaxInt64) {
		return "", fmt.Errorf("value %q overflows at precision %d", s, precision)
	}
	var scaled int64
	if f >= 0 {
		scaled = int64(math.Floor(f*pow + 0.5))
	} else {
		scaled = -int64(math.Floor(-f*pow + 0.5))
	}

	if precision == 0 {
		return strconv.FormatInt(scaled, 10), nil
	}

	sign := ""
	if scaled < 0 {
		sign = "-"
		scaled = -scaled
	}
	divisor := int64(pow)
	whole := scaled / divisor
	frac := scaled % divisor
	return fmt.Sprintf("%s%d.%0*d", sign, whole, precision, frac), nil
}

// PadIdentifier left-pads a trimmed identifier with zeros to the declared
// width. Identifiers wider than the declared width pass through unchanged.
func PadIdentifier(s string, width int) string {
	if width <= len(s) {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ParseDate tries each format in order
func ParseDate(s string, formats []string) (time.Time, error) {
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q with any of %d date formats", s, len(formats))
}
