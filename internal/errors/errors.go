package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InputMissing indicates a required input (snapshot dir, log file) does not exist
	InputMissing ErrorCode = "INPUT_MISSING"
	// ParseSkipped indicates a malformed artifact was skipped during a scan
	ParseSkipped ErrorCode = "PARSE_SKIPPED"
	// ConfigInvalid indicates malformed configuration (rule file, config file)
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// NoMatch indicates no graph node matched with a positive score.
	// This is a valid analysis outcome, not a failure; the code exists so
	// structured output can label it consistently.
	NoMatch ErrorCode = "NO_MATCH"
	// StoreFailed indicates a storage open/read/write failure
	StoreFailed ErrorCode = "STORE_FAILED"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// LsaError represents an lsa error with a stable code and message
type LsaError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new LsaError
func New(code ErrorCode, message string) *LsaError {
	return &LsaError{Code: code, Message: message}
}

// Wrap creates a new LsaError wrapping an underlying error
func Wrap(code ErrorCode, message string, cause error) *LsaError {
	return &LsaError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *LsaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *LsaError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *LsaError) WithDetails(details interface{}) *LsaError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError if err carries none
func CodeOf(err error) ErrorCode {
	var le *LsaError
	if errors.As(err, &le) {
		return le.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
