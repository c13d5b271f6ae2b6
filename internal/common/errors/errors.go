// Package errors provides standardized error handling for walletsync
package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInternal      = errors.New("internal error")
	ErrAlreadyExists = errors.New("already exists")

	// ErrMalformedDocument marks an interchange document that is not a JSON
	// object (or array, for card documents) at the top level.
	ErrMalformedDocument = fmt.Errorf("malformed document: %w", ErrInvalidInput)
)

// ProviderError reports a failed call to the external data provider.
// Cursor is the last cursor that produced a successful page, so a caller
// can restart pagination from there.
type ProviderError struct {
	Op         string
	Cursor     string
	StatusCode int
	Code       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Cursor != "" {
		msg += fmt.Sprintf(" after cursor %q", e.Cursor)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MalformedRecordError reports an input record missing a structurally
// required field or carrying a field of the wrong shape.
type MalformedRecordError struct {
	Kind   string // account, transaction, card...
	Key    string // identifying key of the record, when known
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	key := e.Key
	if key == "" {
		key = "<unknown>"
	}
	return fmt.Sprintf("malformed %s %s: field %q %s", e.Kind, key, e.Field, e.Reason)
}

// Is lets callers match malformed records against ErrInvalidInput.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConstraintViolation reports a record that would break referential
// integrity. The record is skipped; the run continues.
type ConstraintViolation struct {
	Entity     string
	Key        string
	Constraint string
	Ref        string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("%s %s violates %s (%s)", e.Entity, e.Key, e.Constraint, e.Ref)
}

// SchemaMigrationError is a failed additive migration step. It is logged
// and skipped, never returned to the caller of EnsureSchema.
type SchemaMigrationError struct {
	Step string
	Err  error
}

func (e *SchemaMigrationError) Error() string {
	return fmt.Sprintf("migration %s skipped: %v", e.Step, e.Err)
}

func (e *SchemaMigrationError) Unwrap() error { return e.Err }

// New is errors.New, re-exported so callers only import this package.
func New(text string) error {
	return errors.New(text)
}

// Wrap adds context to an error while preserving the original error
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Must panics if err is not nil
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
