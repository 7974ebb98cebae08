package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code and message so wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of base carrying err as its cause. Sentinels are never mutated.
func Wrap(base *Error, err error) *Error {
	return &Error{Code: base.Code, Message: base.Message, Err: err}
}

// Common error types
var (
	ErrBadRequest      = New(http.StatusBadRequest, "Invalid request", nil)
	ErrTooManyRequests = New(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
	ErrInternalServer  = New(http.StatusInternalServerError, "Internal Server Error", nil)
)

// Authentication error types
var (
	ErrMissingToken = New(http.StatusUnauthorized, "Authorization header required", nil)
	ErrInvalidToken = New(http.StatusUnauthorized, "Invalid or expired token", nil)
)

// InvalidRequest reports a body or parameter that failed to bind.
func InvalidRequest(err error) *Error {
	e := Wrap(ErrBadRequest, err)
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// Respond writes err as {"error": ...} and aborts the chain.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// From converts any error into an *Error, defaulting to 500.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(ErrInternalServer, err)
}

// ErrorMiddleware renders the last error attached with c.Error when no response was written.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Respond(c, c.Errors.Last().Err)
	}
}
