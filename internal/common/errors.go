// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Dataset errors.
	ErrMalformedRecord = errors.New("malformed record")
	ErrParse           = errors.New("parse error")

	// Model lifecycle errors.
	ErrPersistedModel = errors.New("persisted model missing or corrupt")
	ErrTrainerFailure = errors.New("trainer failure")
	ErrIterationLimit = errors.New("iteration limit reached")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RecordError describes a dataset record that could not be processed.
// It unwraps to ErrMalformedRecord or ErrParse.
type RecordError struct {
	Err   error
	Value string
	Line  int
	Field int
}

func (e *RecordError) Error() string {
	switch {
	case e.Line > 0 && e.Field >= 0:
		return fmt.Sprintf("line %d field %d %q: %v", e.Line, e.Field, e.Value, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Field >= 0:
		return fmt.Sprintf("field %d %q: %v", e.Field, e.Value, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewMalformedRecordError reports a record whose shape does not match the schema.
func NewMalformedRecordError(format string, args ...any) error {
	return &RecordError{
		Err:   fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...)),
		Field: -1,
	}
}

// NewParseError reports a field value that could not be parsed.
func NewParseError(field int, value string, cause error) error {
	err := ErrParse
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrParse, cause)
	}
	return &RecordError{
		Err:   err,
		Field: field,
		Value: value,
	}
}

// WithLine attaches a 1-based line number to a record error.
// Errors that are not record errors are wrapped unchanged.
func WithLine(err error, line int) error {
	var recordErr *RecordError
	if errors.As(err, &recordErr) {
		annotated := *recordErr
		annotated.Line = line
		return &annotated
	}
	return fmt.Errorf("line %d: %w", line, err)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
