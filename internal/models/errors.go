package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks requests that can never succeed as sent:
// no text and no url, both set, or an unsupported source URL.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputf wraps ErrInvalidInput with a human readable detail
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RetrievalKind classifies why a source fetch failed
type RetrievalKind string

const (
	RetrievalTimeout   RetrievalKind = "timeout"
	RetrievalNotFound  RetrievalKind = "not_found"
	RetrievalBlocked   RetrievalKind = "blocked"
	RetrievalMalformed RetrievalKind = "malformed_response"
	RetrievalCancelled RetrievalKind = "cancelled"
)

// RetrievalError is returned when a source URL could not be fetched or understood
type RetrievalError struct {
	Kind       RetrievalKind
	URL        string
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("retrieval %s", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.URL != "" {
		msg += " for " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Detail returns the message shown to the display client
func (e *RetrievalError) Detail() string {
	switch e.Kind {
	case RetrievalNotFound:
		return "Source post not found or has been removed."
	case RetrievalBlocked:
		if e.StatusCode != 0 {
			return fmt.Sprintf("Source blocked the request (HTTP %d). Backend offline or blocked.", e.StatusCode)
		}
		return "Source blocked the request. Backend offline or blocked."
	case RetrievalMalformed:
		return "Source returned an unexpected response."
	case RetrievalCancelled:
		return "Request was cancelled before the source could be fetched."
	default:
		return "Timed out fetching the source. Backend offline or blocked."
	}
}

// NewRetrievalError builds a RetrievalError
func NewRetrievalError(kind RetrievalKind, url string, status int, err error) *RetrievalError {
	return &RetrievalError{Kind: kind, URL: url, StatusCode: status, Err: err}
}

// IsRetrievalKind reports whether err is a RetrievalError of the given kind
func IsRetrievalKind(err error, kind RetrievalKind) bool {
	var re *RetrievalError
	return errors.As(err, &re) && re.Kind == kind
}
