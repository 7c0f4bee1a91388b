// Package stream structured error types for configuration, memory and counter failures
package stream

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Configuration errors (bad arguments, invalid settings)
	ErrTypeConfig ErrorType = iota
	// Memory errors (allocation guard, size overflow)
	ErrTypeMemory
	// Performance counter backend errors
	ErrTypeCounter
	// Execution errors
	ErrTypeExecution
)

// StreamError represents a structured error with context
type StreamError struct {
	Type    ErrorType
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying error if any
}

// Error implements the error interface
func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stream %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("stream %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *StreamError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfig:
		return "Config"
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeCounter:
		return "Counter"
	case ErrTypeExecution:
		return "Execution"
	default:
		return "Unknown"
	}
}

// NewConfigError creates a configuration error
func NewConfigError(op string, message string) error {
	return &StreamError{
		Type:    ErrTypeConfig,
		Op:      op,
		Message: message,
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &StreamError{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewCounterError creates a performance counter error
func NewCounterError(op string, message string, err error) error {
	return &StreamError{
		Type:    ErrTypeCounter,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewExecutionError creates an execution error
func NewExecutionError(op string, message string, err error) error {
	return &StreamError{
		Type:    ErrTypeExecution,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

var (
	// ErrTrialsTooFew indicates fewer than MinTrials trials were requested
	ErrTrialsTooFew = NewConfigError("Config", fmt.Sprintf("trials must be at least %d", MinTrials))

	// ErrEmptyArray indicates a zero array length
	ErrEmptyArray = NewConfigError("Config", "array length must be positive")

	// ErrOutOfMemory indicates the arrays do not fit in available memory
	ErrOutOfMemory = NewMemoryError("Allocate", "insufficient memory for arrays", nil)

	// ErrUnsupported indicates a counter backend that this platform cannot provide
	ErrUnsupported = NewCounterError("Backend", "not supported on this platform", nil)
)

func errorType(err error) (ErrorType, bool) {
	var e *StreamError
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConfig
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeMemory
}

// IsCounterError checks if an error is a counter backend error
func IsCounterError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeCounter
}
