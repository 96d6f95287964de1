package recognition

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for recognition calls.
type ErrorCategory string

const (
	// ErrorTimeout: the per-call deadline expired.
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorUnavailable: the backend could not be reached.
	ErrorUnavailable ErrorCategory = "unavailable"
	// ErrorBadData: the backend rejected or mangled the payload.
	ErrorBadData  ErrorCategory = "bad_data"
	ErrorInternal ErrorCategory = "internal"
)

// Error is a transport-level recognition failure. Message is the text shown
// to operators and stored on failed outcomes.
type Error struct {
	Domain     Domain
	Category   ErrorCategory
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a categorized recognition error.
func NewError(domain Domain, category ErrorCategory, message string, underlying error) *Error {
	return &Error{
		Domain:     domain,
		Category:   category,
		Message:    message,
		Underlying: underlying,
	}
}

// CategoryOf returns the category of a recognition error, or ErrorInternal
// for anything else.
func CategoryOf(err error) ErrorCategory {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ErrorInternal
}

// Describe renders err for an outcome, prefixing the domain when known.
func Describe(err error) string {
	var re *Error
	if errors.As(err, &re) && re.Domain != "" {
		return fmt.Sprintf("%s recognition failed: %s", re.Domain, re.Message)
	}
	return err.Error()
}
