package errors

import (
	stderrors "errors"
	"fmt"
)

// Type classifies the failures the scraping engine can produce.
type Type string

const (
	// TypeIdentifierNotFound means the redirected share link carried no
	// extractable video identifier.
	TypeIdentifierNotFound Type = "identifier_not_found"

	// TypeNoPlaybackURL means the detail payload lacked a usable
	// play-address list.
	TypeNoPlaybackURL Type = "no_playback_url"

	// TypeEmptyResolvedURL means tier selection produced an empty URL
	// after the watermark substitution.
	TypeEmptyResolvedURL Type = "empty_resolved_url"

	// TypeMalformedRecord means a single feed item lacked a required
	// nested field. Recovered locally: the item is skipped.
	TypeMalformedRecord Type = "malformed_record"

	// TypeCaptureExhausted means no network responses were observed
	// before the wait deadline.
	TypeCaptureExhausted Type = "capture_exhausted"

	// TypeDriverFailure means the browser session itself became unusable.
	TypeDriverFailure Type = "driver_failure"
)

// Error is a typed scraping failure. URL carries the page or request URL
// that was being processed when the failure occurred, for diagnostics.
type Error struct {
	Type    Type
	Message string
	URL     string
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s: %s (url: %s)", e.Type, e.Message, e.URL)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// New creates a typed error.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(t Type, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithURL attaches the URL being processed and returns the same error.
func (e *Error) WithURL(url string) *Error {
	e.URL = url
	return e
}

// IsType reports whether err is (or wraps) a typed error of type t.
func IsType(err error, t Type) bool {
	var se *Error
	if stderrors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// TypeOf returns the error's type. Untyped errors are classified as
// driver failures: anything the taxonomy does not name came from the
// browser session itself.
func TypeOf(err error) Type {
	var se *Error
	if stderrors.As(err, &se) {
		return se.Type
	}
	return TypeDriverFailure
}
