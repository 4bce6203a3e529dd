package web

// errors.go provides unified error response handling for the API.
//
// Every error is logged with its technical detail and the request ID, and
// returned to the client as the mapped user message and support code.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/contactcard/internal/core"
	"github.com/JonMunkholm/contactcard/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes the mapped user message. A statusCode of
// zero derives the status from the error kind.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)
	if statusCode == 0 {
		statusCode = statusFor(err)
	}

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fe  *core.FormatError
		me  *core.MappingError
		mbe *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &fe), errors.As(err, &me), errors.Is(err, core.ErrNoRecords):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
