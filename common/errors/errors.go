package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stable machine-readable error codes returned to clients.
const (
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "RESOURCE_NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeOutOfStock     = "OUT_OF_STOCK"
	CodeTooManyRequest = "TOO_MANY_REQUESTS"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
)

// Error represents an application error
type Error struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
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

// WithDetails returns a copy of e carrying the given details.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new Error
func New(status int, code, message string, err error) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func InvalidPayload(message string) *Error {
	return New(http.StatusBadRequest, CodeInvalidPayload, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, CodeForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message, nil)
}

func OutOfStock(message string) *Error {
	return New(http.StatusConflict, CodeOutOfStock, message, nil)
}

// Internal hides err from the client; it is only logged.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, message, err)
}

// As extracts an *Error from err, wrapping anything else as an internal error.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// Response writes the error envelope and aborts the chain.
func Response(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err})
}

// ErrorMiddleware renders the last error attached to the context with c.Error.
func ErrorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := As(c.Errors.Last().Err)
		if appErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("code", appErr.Code),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(appErr),
			)
		}
		Response(c, appErr)
	}
}
