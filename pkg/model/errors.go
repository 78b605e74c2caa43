// pkg/model/errors.go
package model

import (
	"errors"
	"fmt"
)

// StructuralError is always fatal for the file: missing required fields,
// empty input, unsupported formats. It carries enough context to act on
// without a debugger.
type StructuralError struct {
	Reason Reason
	Field  string
	Detail string
}

func (e *StructuralError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("structural error (%s) field %s: %s", e.Reason, e.Field, e.Detail)
	}
	return fmt.Sprintf("structural error (%s): %s", e.Reason, e.Detail)
}

// IsStructural reports whether err is (or wraps) a StructuralError
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// CastError marks a value that cannot be canonicalized. It is isolated to
// the row that produced it and never aborts the batch.
type CastError struct {
	Field    string
	Value    string
	Expected string // e.g. "numeric", "date"
	Err      error
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("cannot cast field %s value %q to %s", e.Field, e.Value, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CastError) Unwrap() error {
	return e.Err
}

// UniquenessError fails a whole batch when the dataset's duplicate policy
// is block
type UniquenessError struct {
	Dataset    string
	Key        string
	Duplicates int
}

func (e *UniquenessError) Error() string {
	return fmt.Sprintf("dataset %s: %d duplicate natural key(s), first offender %q",
		e.Dataset, e.Duplicates, e.Key)
}
