package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/memorial/internal/domain"
)

// RequestIDKey is the gin context key the request ID middleware writes.
const RequestIDKey = "request_id"

// Response is the standard JSON envelope for API responses.
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	RequestID string `json:"requestId,omitempty"`
}

// ValidationErrorResponse is the envelope for 400 responses that name the
// offending fields.
type ValidationErrorResponse struct {
	Code      int               `json:"code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors"`
	RequestID string            `json:"requestId,omitempty"`
}

// Success sends a 200 JSON response with the given data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// Error maps err to a status through domain.HTTPStatusCode and writes the
// error envelope. Only *domain.AppError messages reach the client; anything
// else is reported as "internal error". An AppError carrying field errors is
// written as a ValidationErrorResponse.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	requestID := c.GetString(RequestIDKey)

	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		c.JSON(status, Response{Code: status, Message: "internal error", RequestID: requestID})
		return
	}
	if len(appErr.Fields) > 0 {
		c.JSON(status, ValidationErrorResponse{
			Code:      status,
			Message:   appErr.Message,
			Errors:    appErr.Fields,
			RequestID: requestID,
		})
		return
	}
	c.JSON(status, Response{Code: status, Message: appErr.Message, RequestID: requestID})
}

// List sends a 200 JSON response with a page of results as the body:
// {"data": [...], "pagination": {...}}.
func List[T any](c *gin.Context, result *domain.PageResult[T]) {
	if result == nil {
		result = &domain.PageResult[T]{Data: []T{}}
	}
	c.JSON(http.StatusOK, result)
}

// ValidationError sends a 400 response for a binding or validator failure.
func ValidationError(c *gin.Context, err error) {
	bindingError(c, err, nil)
}

// BindAndValidate binds the request body into obj. On failure it writes the
// 400 response itself, naming fields by their JSON tags, and returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		bindingError(c, err, obj)
		return false
	}
	return true
}

func bindingError(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		// Malformed body or a type mismatch; the decoder message is not user facing.
		c.JSON(http.StatusBadRequest, Response{
			Code:      http.StatusBadRequest,
			Message:   "bad request",
			RequestID: c.GetString(RequestIDKey),
		})
		return
	}

	names := jsonNames(obj)
	wireName := func(field, fallback string) string {
		if n, ok := names[field]; ok {
			return n
		}
		return fallback
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		msg, ok := tagMessages[fe.Tag()]
		switch {
		case fe.Tag() == "eqfield":
			msg = "Must match " + wireName(fe.Param(), fe.Param())
		case !ok:
			msg = "Is invalid"
		case strings.Contains(msg, "%s"):
			msg = fmt.Sprintf(msg, fe.Param())
		}
		fields[wireName(fe.StructField(), strings.ToLower(fe.Field()))] = msg
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:      http.StatusBadRequest,
		Message:   "validation error",
		Errors:    fields,
		RequestID: c.GetString(RequestIDKey),
	})
}

// tagMessages renders validator tags; %s receives the tag parameter.
var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Must be a valid email address",
	"min":      "Must be at least %s characters",
	"max":      "Must be at most %s characters",
	"oneof":    "Must be one of: %s",
}

// jsonNames maps struct field names of obj to their JSON names. It returns
// nil unless obj is a struct or a pointer to one.
func jsonNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	names := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names[f.Name] = name
		}
	}
	return names
}
