// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configuration and settings updates
//   - Data/Resource errors (200-299): Missing history, query failures, unknown symbols
//   - Strategy errors (400-499): Strategy lookup, configuration and runtime errors
//   - Position errors (500-599): Position lifecycle violations
//   - Backtest progress errors (600-699): Progress persistence and pair locking
//   - Broker errors (700-799): Price feed failures
//   - Journal errors (800-899): Trade journal sink failures
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodePositionAlreadyClosed, "position %s already closed", id)
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsInvariantViolation reports whether err signals a caller bug against the
// position lifecycle (double close, foreign position, bad quantity).
func IsInvariantViolation(err error) bool {
	switch GetCode(err) {
	case ErrCodePositionAlreadyClosed, ErrCodePositionNotInBook, ErrCodeInvalidQuantity:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is an environmental failure that the next
// scheduled tick or session may not hit again.
func IsRetryable(err error) bool {
	code := GetCode(err)

	switch {
	case code >= 200 && code < 300:
		return code != ErrCodeSymbolNotFound
	case code >= 700 && code < 900:
		return true
	case code == ErrCodeProgressWriteFailed, code == ErrCodePairLocked:
		return true
	default:
		return false
	}
}
