package web

// errors.go provides unified error response handling for the web layer.
//
// All errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Rendered as JSON for API clients and as an HTML page otherwise

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/web/views"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNotFound    = errors.New("page not found")
	errBadRequest  = errors.New("invalid request")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a domain error.
func statusFor(err error) int {
	var (
		unsupported *core.UnsupportedFormatError
		decodeErr   *core.DecodeError
		columnErr   *core.InvalidColumnError
		encodeErr   *core.EncodeError
		verrs       validator.ValidationErrors
		maxBytes    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsupported), errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &columnErr), errors.As(err, &verrs),
		errors.Is(err, core.ErrNoFile), errors.Is(err, errBadRequest), errors.Is(err, errTooManyFiles):
		return http.StatusBadRequest
	case errors.As(err, &encodeErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyPasses):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage maps err for display. Request-level errors the core catalogue
// does not know about get their own text.
func userMessage(err error) core.UserMessage {
	var (
		verrs    validator.ValidationErrors
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytes):
		return core.MapError(errors.New("file too large"))
	case errors.As(err, &verrs):
		return core.UserMessage{
			Message: "Invalid request: " + describeValidation(verrs),
			Action:  "Check the request fields and try again",
			Code:    "REQ001",
		}
	case errors.Is(err, errTooManyFiles):
		return core.UserMessage{
			Message: "Too many files in one upload",
			Action:  "Upload fewer files at a time",
			Code:    "REQ002",
		}
	case errors.Is(err, errBadRequest):
		return core.UserMessage{
			Message: "Invalid request",
			Action:  "Check the request and try again",
			Code:    "REQ001",
		}
	case errors.Is(err, errNotFound):
		return core.UserMessage{
			Message: "Page not found",
			Action:  "Go back to the start page",
			Code:    "REQ404",
		}
	}
	return core.MapError(err)
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" is "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

// respondError logs the technical error and writes the mapped message as
// JSON or as an HTML page, depending on the request. A zero statusCode is
// derived from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	msg := userMessage(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		render.Status(r, statusCode)
		render.JSON(w, r, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	s.renderComponent(w, r, statusCode, views.ErrorPage(msg))
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
