package errors

import (
	"fmt"
	"net/http"
)

// Error is the JSON body of every failed API call.
type Error struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// New creates a new error with the given code and message
func New(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with the given code and formatted message
func Newf(code int, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithKind returns a copy of e labelled with a machine readable kind.
func (e *Error) WithKind(kind string) *Error {
	c := *e
	c.Kind = kind
	return &c
}

// Common error codes
const (
	CodeInternalError      = http.StatusInternalServerError
	CodeBadRequest         = http.StatusBadRequest
	CodeNotFound           = http.StatusNotFound
	CodeConflict           = http.StatusConflict
	CodeUnprocessable      = http.StatusUnprocessableEntity
	CodeBadGateway         = http.StatusBadGateway
	CodeServiceUnavailable = http.StatusServiceUnavailable
	CodeGatewayTimeout     = http.StatusGatewayTimeout
)
