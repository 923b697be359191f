// Package apierror implements the error taxonomy shared by intake and the
// delivery engine, adapted from the teacher's services/common/errors package.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func new(kind string, code int, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

// Validation maps to spec.md's ValidationError — malformed input, 400, never retried.
func Validation(message string) *Error {
	return new("validation_error", http.StatusBadRequest, message, nil)
}

// NotFound maps to spec.md's NotFound — referenced entity missing, 404.
func NotFound(message string) *Error {
	return new("not_found", http.StatusNotFound, message, nil)
}

// InvalidState maps to spec.md's InvalidState — state machine refuses the
// transition (refund on non-completed payment, over-refund), 400.
func InvalidState(message string) *Error {
	return new("invalid_state", http.StatusBadRequest, message, nil)
}

// DuplicateKey maps to spec.md's DuplicateKey. It is never surfaced to a
// caller directly — intake recovers from it locally by re-reading the
// existing payment and replying 200 (see intake/payments.go).
func DuplicateKey(message string) *Error {
	return new("duplicate_key", http.StatusConflict, message, nil)
}

// Transient maps to spec.md's Transient — DB deadlock, queue unavailable,
// webhook receiver 5xx/timeout. Retried by the caller.
func Transient(message string, err error) *Error {
	return new("transient", http.StatusServiceUnavailable, message, err)
}

// Fatal maps to spec.md's Fatal — internal programming error. Surfaced as 500
// and logged; does not poison the queue (the job is nacked and retried).
func Fatal(message string, err error) *Error {
	return new("fatal", http.StatusInternalServerError, message, err)
}

// As returns err itself if it is an *Error, or a Fatal wrapping it
// otherwise. Wrapped *Error values are not unwrapped.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Fatal("internal error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind string) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
