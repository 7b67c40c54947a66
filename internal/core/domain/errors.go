// Package domain defines the error vocabulary shared by kvopts packages.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is a failure carrying a stable code next to its human-readable
// text. The text is what callers see; the code only backs errors.Is.
type DomainError struct {
	Code    string // Error code (e.g., "KV-OPT-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with a format string.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Options file errors
// ============================================================================

var (
	// ErrOptionsIO indicates the options file could not be read.
	ErrOptionsIO = NewDomainError("KV-IO-5001", "options file unreadable")

	// ErrOptionsParse indicates malformed syntax or structure in the options file.
	ErrOptionsParse = NewDomainError("KV-PARSE-4001", "malformed options file")

	// ErrUnknownOption indicates an option name the engine does not recognize.
	ErrUnknownOption = NewDomainError("KV-OPT-4001", "unknown option")

	// ErrInvalidOptionValue indicates a value that does not convert to its option's type.
	ErrInvalidOptionValue = NewDomainError("KV-OPT-4002", "invalid option value")
)

// ============================================================================
// Column family errors
// ============================================================================

var (
	// ErrUnknownColumnFamily indicates a column family nobody asked for.
	ErrUnknownColumnFamily = NewDomainError("KV-CF-4041", "unknown column family")

	// ErrReservedColumnFamily indicates a user column family named like the default one.
	ErrReservedColumnFamily = NewDomainError("KV-CF-4001", "reserved column family name")

	// ErrColumnFamilyExists indicates a column family is already present.
	ErrColumnFamilyExists = NewDomainError("KV-CF-4091", "column family already exists")
)

// ============================================================================
// Engine errors
// ============================================================================

var (
	// ErrDatabaseMissing indicates the database does not exist and create_if_missing is off.
	ErrDatabaseMissing = NewDomainError("KV-DB-4001", "database does not exist")

	// ErrDatabaseExists indicates the database exists and error_if_exists is on.
	ErrDatabaseExists = NewDomainError("KV-DB-4091", "database already exists")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("KV-ARG-4001", "invalid argument")
)

// ============================================================================
// Handle errors
// ============================================================================

var (
	// ErrInvalidHandle indicates a handle that was never issued or was already destroyed.
	ErrInvalidHandle = NewDomainError("KV-HDL-4001", "invalid handle")
)
