// Package errors defines the failure taxonomy for the campaign index engine.
// Every failure surfaced to a caller carries one of the codes below so the
// CLI can report which session failed and why, and so retry logic can tell
// transient I/O conditions apart from defects.
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unclassified error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidEntityName rejects malformed or empty entity names before
	// resolution. Recoverable by the caller correcting the input.
	CodeInvalidEntityName Code = "INVALID_ENTITY_NAME"

	// CodeSchemaViolation rejects an incoming summary missing required
	// fields. The whole merge is refused before any mutation.
	CodeSchemaViolation Code = "SCHEMA_VIOLATION"

	// CodeReferentialIntegrity marks an internal invariant breach. Always a
	// defect; the operation aborts rather than silently repairing.
	CodeReferentialIntegrity Code = "REFERENTIAL_INTEGRITY_VIOLATION"

	// CodeTransientIO marks an I/O condition worth retrying (lock
	// contention, busy database).
	CodeTransientIO Code = "TRANSIENT_IO_FAILURE"

	// CodeFatalIO is surfaced after transient retries are exhausted. The
	// failing session's merge is lost; committed state is unaffected.
	CodeFatalIO Code = "FATAL_IO_FAILURE"
)

// Sentinel values for errors.Is matching across package boundaries.
var (
	ErrInvalidEntityName    = errors.New("invalid entity name")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrTransientIO          = errors.New("transient io failure")
	ErrFatalIO              = errors.New("fatal io failure")
)

// Error is a coded error with an operation description and optional cause.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps coded errors onto the package sentinels so callers can write
// errors.Is(err, apperrors.ErrSchemaViolation) without knowing the
// concrete type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidEntityName:
		return e.Code == CodeInvalidEntityName
	case ErrSchemaViolation:
		return e.Code == CodeSchemaViolation
	case ErrReferentialIntegrity:
		return e.Code == CodeReferentialIntegrity
	case ErrTransientIO:
		return e.Code == CodeTransientIO
	case ErrFatalIO:
		return e.Code == CodeFatalIO
	}
	return false
}

// E builds a coded error. The cause may be nil.
func E(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Ef builds a coded error for op with a formatted message.
func Ef(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the taxonomy code from an error chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Retryable reports whether the error is a transient condition worth
// another attempt.
func Retryable(err error) bool {
	return CodeOf(err) == CodeTransientIO
}
