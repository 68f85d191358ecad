// Package apperr defines the error taxonomy shared by the session, scheduling
// and document layers, plus the CLI helpers for reporting them.
package apperr

import (
	"errors"
	"fmt"
	"os"

	"github.com/balkashynov/wroklog/internal/logger"
)

// Kind classifies an error for propagation and transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindQuotaExhausted
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is a typed failure returned across the core boundary.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so wrapped copies of a sentinel still
// satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Sentinels. Compare with errors.Is.
var (
	ErrConflictActive       = &Error{Kind: KindConflict, Code: "ACTIVE_EXISTS", Message: "an active session already exists"}
	ErrConflictDuplicateDay = &Error{Kind: KindConflict, Code: "DUPLICATE_DAY", Message: "an entry already exists for this date"}
	ErrConcurrentUpdate     = &Error{Kind: KindConflict, Code: "CONCURRENT_UPDATE", Message: "document was modified concurrently"}

	ErrTooShort        = &Error{Kind: KindValidation, Code: "TOO_SHORT", Message: "session must be at least 4 hours"}
	ErrTooLong         = &Error{Kind: KindValidation, Code: "TOO_LONG", Message: "session duration cannot exceed 24 hours"}
	ErrFutureEnd       = &Error{Kind: KindValidation, Code: "FUTURE_END_TIME", Message: "end time cannot be in the future"}
	ErrInvalidRange    = &Error{Kind: KindValidation, Code: "INVALID_TIME_RANGE", Message: "end time must be after start time"}
	ErrInvalidSchedule = &Error{Kind: KindValidation, Code: "INVALID_SCHEDULE", Message: "schedule time is out of range"}
	ErrInvalidInput    = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "invalid input"}
	ErrInvalidContent  = &Error{Kind: KindValidation, Code: "INVALID_CONTENT", Message: "invalid document content"}

	ErrNotFound        = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}
	ErrSessionNotFound = &Error{Kind: KindNotFound, Code: "SESSION_NOT_FOUND", Message: "no such active session"}
	ErrDocumentMissing = &Error{Kind: KindNotFound, Code: "DOCUMENT_NOT_FOUND", Message: "document not found"}
	ErrVersionMissing  = &Error{Kind: KindNotFound, Code: "VERSION_NOT_FOUND", Message: "version not found"}

	ErrQuotaExhausted = &Error{Kind: KindQuotaExhausted, Code: "QUOTA_EXHAUSTED", Message: "monthly summary quota exhausted"}

	ErrTransient = &Error{Kind: KindTransient, Code: "STORE_UNAVAILABLE", Message: "storage temporarily unavailable"}
)

// With returns a copy of sentinel carrying a more specific message and cause.
func With(sentinel *Error, message string, cause error) *Error {
	e := *sentinel
	if message != "" {
		e.Message = message
	}
	e.Err = cause
	return &e
}

// Transient wraps a storage failure that is safe to retry.
func Transient(cause error) error {
	if cause == nil {
		return nil
	}
	if IsTransient(cause) {
		return cause
	}
	return With(ErrTransient, "", cause)
}

// KindOf returns the Kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine readable code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
