package utils

import (
	"errors"
	"fmt"
)

// ErrMissingInput marks a required file or stream that does not exist.
var ErrMissingInput = errors.New("missing input")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// MissingInput builds an AppError for an absent file, matching ErrMissingInput.
func MissingInput(op, path string, cause error) error {
	if cause == nil {
		cause = ErrMissingInput
	} else {
		cause = fmt.Errorf("%w: %w", ErrMissingInput, cause)
	}
	return &AppError{Op: op, Msg: fmt.Sprintf("%s not found", path), Err: cause}
}
