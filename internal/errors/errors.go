// Package apperrors defines the application error types and exit codes,
// separating configuration mistakes, failed computations and server
// failures while keeping the underlying cause reachable through
// errors.Is and errors.As.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes.
const (
	ExitSuccess           = 0   // Successful execution.
	ExitErrorGeneric      = 1   // Generic error.
	ExitErrorTimeout      = 2   // The run hit its timeout.
	ExitErrorMismatch     = 3   // Multiplication strategies disagree.
	ExitErrorConfig       = 4   // Invalid configuration.
	ExitErrorNotConverged = 5   // An iterative solver did not converge.
	ExitErrorCanceled     = 130 // Canceled, e.g. by SIGINT.
)

// ErrNotConverged is wrapped by every solver error that reports a run
// which did not reach its tolerance.
var ErrNotConverged = errors.New("did not converge")

// ConfigError is a user configuration error, such as an invalid flag value.
// Cause, when set, is usually the ValidationError of the offending field.
type ConfigError struct {
	Message string
	Cause   error
}

func (e ConfigError) Error() string { return e.Message }

// Unwrap returns the cause, which may be nil.
func (e ConfigError) Unwrap() error { return e.Cause }

// NewConfigError creates a ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A ConfigError with no cause.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// NewFieldError creates a ConfigError for one out-of-range setting. The
// returned error carries a ValidationError naming field and the rejected
// value, reachable with errors.As.
//
// Parameters:
//   - field: The flag name, e.g. "n".
//   - value: The rejected value.
//   - format, a: The user-facing message.
//
// Returns:
//   - error: A ConfigError wrapping a ValidationError.
func NewFieldError(field string, value any, format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return ConfigError{Message: msg, Cause: NewValidationError(field, msg, value)}
}

// ComputationError wraps a failure raised while multiplying or solving.
type ComputationError struct {
	// Op names the failed operation, e.g. "pagerank".
	Op    string
	Cause error
}

func (e ComputationError) Error() string {
	if e.Op == "" {
		return e.Cause.Error()
	}
	return e.Op + ": " + e.Cause.Error()
}

// Unwrap returns the cause.
func (e ComputationError) Unwrap() error { return e.Cause }

// ServerError is an HTTP server failure with an optional cause.
type ServerError struct {
	Message string
	Cause   error
}

func (e ServerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the cause, which may be nil.
func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a ServerError.
//
// Parameters:
//   - message: What the server was doing.
//   - cause: The underlying error; may be nil.
//
// Returns:
//   - error: A ServerError.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
//
// Parameters:
//   - field: The offending field; empty for request-level problems.
//   - message: The reason.
//   - value: The rejected value, kept for callers using errors.As.
//
// Returns:
//   - error: A ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}

// WrapError prefixes err with a formatted context message, keeping err in
// the chain.
//
// Parameters:
//   - err: The error to wrap. A nil err yields nil.
//   - format, args: The context prefix.
//
// Returns:
//   - error: "<prefix>: <err>", or nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsContextError reports whether err is a cancellation or a deadline,
// anywhere in its chain.
//
// Parameters:
//   - err: The error to check; nil yields false.
//
// Returns:
//   - bool: true for context.Canceled or context.DeadlineExceeded.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
