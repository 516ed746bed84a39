// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrEmptyQuery           = errors.New("search query is empty")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrInvalidPasscode      = errors.New("invalid passcode")
	ErrLockedOut            = errors.New("authentication locked out")
	ErrNotFound             = errors.New("not found")
	ErrSessionClosed        = errors.New("session closed")
	ErrDatabaseError        = errors.New("database error")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// TransportError represents an error from the document transport.
type TransportError struct {
	Operation string
	StockCode string
	Err       error
}

func (e *TransportError) Error() string {
	if e.StockCode != "" {
		return fmt.Sprintf("transport error [%s] %s: %v", e.Operation, e.StockCode, e.Err)
	}
	return fmt.Sprintf("transport error [%s]: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(operation, stockCode string, err error) *TransportError {
	return &TransportError{
		Operation: operation,
		StockCode: stockCode,
		Err:       err,
	}
}

// CommandError represents a failure around one search command.
type CommandError struct {
	CommandID string
	StockCode string
	Reason    string
	Err       error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command error [%s] %s: %s: %v", e.CommandID, e.StockCode, e.Reason, e.Err)
	}
	return fmt.Sprintf("command error [%s] %s: %s", e.CommandID, e.StockCode, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(commandID, stockCode, reason string, err error) *CommandError {
	return &CommandError{
		CommandID: commandID,
		StockCode: stockCode,
		Reason:    reason,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// LockoutError carries the remaining lockout duration. It unwraps to
// ErrLockedOut so callers can match with errors.Is.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("authentication locked out for %s", e.Remaining.Round(time.Second))
}

func (e *LockoutError) Unwrap() error {
	return ErrLockedOut
}

// NewLockoutError creates a new LockoutError.
func NewLockoutError(remaining time.Duration) *LockoutError {
	return &LockoutError{Remaining: remaining}
}

// AnalysisError represents an error from the AI analysis service.
type AnalysisError struct {
	Operation string
	Err       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis error [%s]: %v", e.Operation, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a new AnalysisError.
func NewAnalysisError(operation string, err error) *AnalysisError {
	return &AnalysisError{Operation: operation, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
