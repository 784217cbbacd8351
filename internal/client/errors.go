package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport is a network failure; no response was received.
	KindTransport Kind = iota + 1
	// KindDecode means a request or response body could not be (de)serialized.
	KindDecode
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindValidation
	KindConflict
	KindRateLimited
	KindServer
	// KindStatus is any other non-2xx status.
	KindStatus
)

var kindNames = map[Kind]string{
	KindTransport:    "transport",
	KindDecode:       "decode",
	KindNotFound:     "not found",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindValidation:   "validation",
	KindConflict:     "conflict",
	KindRateLimited:  "rate limited",
	KindServer:       "server",
	KindStatus:       "status",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindStatus
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Message    string
	// FieldErrors holds per-field messages from a 400 validation response.
	FieldErrors map[string]string
	// RequestID identifies the failed request in server logs.
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}
