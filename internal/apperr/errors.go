// Package apperr defines the error taxonomy shared across the export pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Fatal errors. Any of these aborts the whole export; no partial
// archive is ever written once one is raised.
var (
	// ErrCorruptCollection means the serialized collection failed its
	// post-build verification read-back.
	ErrCorruptCollection = errors.New("corrupt collection")

	// ErrManifestInconsistent means the media manifest and the archive
	// entries disagree.
	ErrManifestInconsistent = errors.New("media manifest inconsistent")

	// ErrMissingCollection means archive assembly was attempted without
	// collection bytes.
	ErrMissingCollection = errors.New("missing collection payload")
)

// Validation errors. Surfaced before any database work; the caller can
// correct the input and retry.
var (
	ErrNoClozeFound = errors.New("no cloze deletions found")
)

// FieldCountError reports a note constructed with the wrong number of
// field values for its model.
type FieldCountError struct {
	Model    string
	Expected int
	Actual   int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("model %q expects %d field values, got %d", e.Model, e.Expected, e.Actual)
}

// UnknownFieldError reports a field name that does not exist on the model.
type UnknownFieldError struct {
	Model string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("model %q has no field %q", e.Model, e.Field)
}

// DuplicateClozeError reports cloze numbers used more than once in a
// single text.
type DuplicateClozeError struct {
	Numbers []int
}

func (e *DuplicateClozeError) Error() string {
	return fmt.Sprintf("duplicate cloze numbers: %v", e.Numbers)
}

// IsValidation reports whether err belongs to the recoverable validation
// class (bad input, nothing partially applied).
func IsValidation(err error) bool {
	var fc *FieldCountError
	var uf *UnknownFieldError
	var dc *DuplicateClozeError
	return errors.Is(err, ErrNoClozeFound) ||
		errors.As(err, &fc) ||
		errors.As(err, &uf) ||
		errors.As(err, &dc)
}
