package domain

import (
	"errors"
	"net/http"
)

// Error codes. Each maps to one HTTP status in HTTPStatusCode.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	CodeUnauthorized  = 5
	CodeForbidden     = 6
	CodeUnavailable   = 7
	CodeUpstream      = 8
)

// AppError is an error the API may show to callers. Message is public; Err
// is the private cause and never leaves the server.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Fields maps JSON field names to what is wrong with them.
	Fields map[string]string `json:"errors,omitempty"`
	Err    error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Predefined business errors.
//
// Match categories with the Is* helpers, not errors.Is. The helpers compare
// codes through errors.As, so they also match wrapped errors and instances
// built with NewAppError; errors.Is only matches these exact pointers.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized  = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden     = &AppError{Code: CodeForbidden, Message: "forbidden"}
	ErrUnavailable   = &AppError{Code: CodeUnavailable, Message: "service unavailable"}
	ErrUpstream      = &AppError{Code: CodeUpstream, Message: "upstream failure"}
)

// NewAppError returns an AppError that keeps err as its private cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewFieldError reports one invalid request field. The message is used both
// as the error message and as the field's entry.
func NewFieldError(field, message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// Category checks. Each reports whether err is or wraps an *AppError
// carrying that code.

func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }

func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

func IsInternal(err error) bool { return hasCode(err, CodeInternal) }

func IsUnauthorized(err error) bool { return hasCode(err, CodeUnauthorized) }

func IsForbidden(err error) bool { return hasCode(err, CodeForbidden) }

func IsUnavailable(err error) bool { return hasCode(err, CodeUnavailable) }

func IsUpstream(err error) bool { return hasCode(err, CodeUpstream) }

func hasCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var httpStatus = map[int]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
	CodeUnavailable:   http.StatusServiceUnavailable,
	CodeUpstream:      http.StatusBadGateway,
}

// HTTPStatusCode returns the status an error is reported with. Errors that
// are not an *AppError with a known code are 500s.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := httpStatus[appErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}
