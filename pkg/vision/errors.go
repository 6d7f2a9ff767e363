package vision

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind tags every failure the reasoning bridge can surface.
type ErrorKind string

const (
	// KindTimeout means an attempt exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindTransport is a network failure below HTTP.
	KindTransport ErrorKind = "transport"
	// KindUpstream is a non-2xx answer from the reasoning service.
	KindUpstream ErrorKind = "upstream"
	// KindMalformedResponse is a response body missing a required field.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindMissingField is a directive missing a field its action needs.
	KindMissingField ErrorKind = "missing_field"
	// KindUnsupportedAction is an action outside the known set.
	KindUnsupportedAction ErrorKind = "unsupported_action"
	// KindElementOutOfRange is a chosen index that does not address a box.
	KindElementOutOfRange ErrorKind = "element_out_of_range"
)

// Error is the structured error type shared by the client and the translator.
type Error struct {
	Kind ErrorKind `json:"kind"`

	Status  int           `json:"status,omitempty"`
	Body    string        `json:"body,omitempty"`
	Field   string        `json:"field,omitempty"`
	Action  ActionKind    `json:"action,omitempty"`
	Index   int           `json:"index,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty"`

	Cause error `json:"-"`
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("reasoning request timed out after %dms", e.Timeout.Milliseconds())
	case KindTransport:
		return fmt.Sprintf("reasoning request transport failure: %v", e.Cause)
	case KindUpstream:
		return fmt.Sprintf("reasoning service returned status %d: %s", e.Status, e.Body)
	case KindMalformedResponse:
		if e.Cause != nil {
			return fmt.Sprintf("malformed reasoning response: invalid field %q: %v", e.Field, e.Cause)
		}
		return fmt.Sprintf("malformed reasoning response: missing or invalid field %q", e.Field)
	case KindMissingField:
		return fmt.Sprintf("chosen action is missing required field %q", e.Field)
	case KindUnsupportedAction:
		return fmt.Sprintf("unsupported action %q", e.Action)
	case KindElementOutOfRange:
		return fmt.Sprintf("chosen element index %d out of range (%s)", e.Index, e.Body)
	}
	return fmt.Sprintf("vision error (%s)", e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Timeout(d time.Duration, cause error) *Error {
	return &Error{Kind: KindTimeout, Timeout: d, Cause: cause}
}

func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Cause: cause}
}

func Upstream(status int, body string) *Error {
	return &Error{Kind: KindUpstream, Status: status, Body: body}
}

func MalformedResponse(field string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Field: field, Cause: cause}
}

func MissingField(name string) *Error {
	return &Error{Kind: KindMissingField, Field: name}
}

func UnsupportedAction(kind ActionKind) *Error {
	return &Error{Kind: KindUnsupportedAction, Action: kind}
}

func ElementOutOfRange(index, count int) *Error {
	return &Error{Kind: KindElementOutOfRange, Index: index, Body: fmt.Sprintf("%d boxes", count)}
}

// KindOf extracts the kind from err, or "" when err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransient reports whether err is worth retrying: timeouts, transport
// failures and 5xx upstream answers.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindUpstream:
		return e.Status >= http.StatusInternalServerError && e.Status <= 599
	}
	return false
}
