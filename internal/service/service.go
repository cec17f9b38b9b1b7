// Package service holds the feed use case: it wires the debounced search,
// the pager registry and the throttled "load more" gate together. The
// comment list of a single LP is a second, independent use case.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"errors"
	"strings"
)

// ErrInvalidInput is the marker error for aggregated validation failures.
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// ErrClosed is returned by feed and comment list operations after Close.
var ErrClosed = errors.New("feed closed")

// FieldError describes a single invalid field in feed input or config.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// Error lists every field, e.g. "invalid input: page_size must be between 1 and 100".
func (e *invalidInputError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

// newInvalidInput builds an aggregated validation error if any field errors are present.
func newInvalidInput(fe []FieldError) error {
	if len(fe) == 0 { // protective case
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// InvalidField builds an aggregated validation error for a single field.
func InvalidField(field, message string) error {
	return newInvalidInput([]FieldError{{Field: field, Message: message}})
}
