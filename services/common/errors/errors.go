package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind is the stable, client-visible error category.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal_error"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error, deriving the kind from the HTTP status.
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kindForStatus(code),
		Message: message,
		Err:     err,
	}
}

func Validation(field, message string) *Error {
	return &Error{Code: http.StatusBadRequest, Kind: KindValidation, Message: message, Field: field}
}

func NotFound(message string) *Error {
	return &Error{Code: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: http.StatusConflict, Kind: KindConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: http.StatusForbidden, Kind: KindForbidden, Message: message}
}

// Internal wraps err behind a generic message. The detail is for logs only.
func Internal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error", Err: err}
}

// From returns err as an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}

func kindForStatus(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindInternal
	}
}

// Respond writes the failure envelope for err.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"success": false,
		"error":   appErr,
	})
}

// OK writes the success envelope.
func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
		}
	}
}

var (
	ErrUnauthorized = Unauthorized("Unauthorized")
	ErrForbidden    = Forbidden("Forbidden")
	ErrInvalidToken = Unauthorized("Invalid token")
)
