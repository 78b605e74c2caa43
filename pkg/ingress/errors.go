// pkg/ingress/errors.go
package ingress

import (
	"errors"
	"fmt"

	"github.com/refdata-io/table-ingress/pkg/model"
)

// Action defines what a caller should do after a parse error
type Action int

const (
	// ActionContinue indicates the batch can proceed with remaining files
	ActionContinue Action = iota
	// ActionSkipFile indicates this file failed but others are unaffected
	ActionSkipFile
	// ActionAbort indicates the run should stop entirely
	ActionAbort
)

// ErrorClass buckets parse errors by the taxonomy's propagation rules
type ErrorClass int

const (
	ErrorClassNone ErrorClass = iota
	// ErrorClassCast marks a row-isolated canonicalization failure
	ErrorClassCast
	// ErrorClassValidation marks range/categorical/row-count violations
	ErrorClassValidation
	// ErrorClassUniqueness marks a duplicate-key batch failure
	ErrorClassUniqueness
	// ErrorClassStructural marks file-fatal errors
	ErrorClassStructural
	// ErrorClassInternal marks everything else (wiring bugs, IO)
	ErrorClassInternal
)

// String returns a string representation of the error class
func (c ErrorClass) String() string {
	switch c {
	case ErrorClassNone:
		return "None"
	case ErrorClassCast:
		return "Cast"
	case ErrorClassValidation:
		return "Validation"
	case ErrorClassUniqueness:
		return "Uniqueness"
	case ErrorClassStructural:
		return "Structural"
	case ErrorClassInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Classify maps an error to its taxonomy class
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassNone
	}

	var castErr *model.CastError
	if errors.As(err, &castErr) {
		return ErrorClassCast
	}

	var uniqErr *model.UniquenessError
	if errors.As(err, &uniqErr) {
		return ErrorClassUniqueness
	}

	var structErr *model.StructuralError
	if errors.As(err, &structErr) {
		switch structErr.Reason {
		case model.ReasonRowCountOutOfBand, model.ReasonRangeViolation, model.ReasonCategoricalViolation:
			return ErrorClassValidation
		default:
			return ErrorClassStructural
		}
	}

	return ErrorClassInternal
}

// ActionFor recommends the caller's next step. Structural, validation, and
// uniqueness failures are scoped to the failing file; the caller decides
// whether to continue with the rest of the batch.
func ActionFor(class ErrorClass) Action {
	switch class {
	case ErrorClassNone, ErrorClassCast:
		return ActionContinue
	case ErrorClassStructural, ErrorClassValidation, ErrorClassUniqueness:
		return ActionSkipFile
	default:
		return ActionAbort
	}
}
