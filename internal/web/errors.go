package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with full technical detail and the request ID, then
// returned to the client as a user message with an action and a code from
// core.MapError.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/stocksync/internal/core"
	"github.com/JonMunkholm/stocksync/internal/export"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errFileTooLarge is matched by core.MapError as FILE002.
var errFileTooLarge = errors.New("file too large")

// errUnsupportedType is matched by core.MapError as FILE003.
var errUnsupportedType = errors.New("unsupported file type")

// respondError logs err and writes the mapped user message. A zero
// statusCode derives the status from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var valErr *core.ValidationError
	var srvErr *core.ServerError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	case errors.As(err, &srvErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
