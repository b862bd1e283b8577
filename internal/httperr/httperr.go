package httperr

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Error is the API error shape shared by handlers and services. Services
// return *Error when the failure maps to a specific HTTP answer; anything
// else becomes a plain 500.
type Error struct {
	Status  int
	Code    string
	Message string
	Extra   gin.H
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "VALIDATION", Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "FORBIDDEN", Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Code: "STATE_CONFLICT", Message: msg}
}

// Scheduling carries the corrected earliest pickup instant so the client can
// resubmit with a valid time.
func Scheduling(msg string, minPickupAt time.Time) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    "SCHEDULING",
		Message: msg,
		Extra:   gin.H{"minPickupAt": minPickupAt.UTC().Format(time.RFC3339)},
	}
}

func Signature(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "INVALID_SIGNATURE", Message: msg}
}

// Upstream flags gateway unavailability so clients can tell "retry later"
// apart from "request was bad".
func Upstream(msg string) *Error {
	return &Error{
		Status:  http.StatusServiceUnavailable,
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: msg,
		Extra:   gin.H{"gateway_unavailable": true},
	}
}

// Respond writes err to the gin context, defaulting to 500 for errors that
// carry no HTTP mapping.
func Respond(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		body := gin.H{"error": apiErr.Message, "code": apiErr.Code}
		for k, v := range apiErr.Extra {
			body[k] = v
		}
		c.JSON(apiErr.Status, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Terjadi kesalahan pada server"})
}
