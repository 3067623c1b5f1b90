package apierrors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// errorResponse is the JSON body written for every error.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusOf maps a typed business error to an HTTP status code.
// Untyped errors map to 500.
func StatusOf(err error) int {
	var (
		notFound    *NotFoundError
		conflict    *ConflictError
		transition  *InvalidTransitionError
		forbidden   *ForbiddenError
		unsupported *UnsupportedConditionError
		validation  *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &unsupported):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes err as a JSON error response. Typed business errors keep
// their message; anything else becomes a generic internal error so storage
// details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	code := CodeOf(err)
	message := err.Error()
	if code == "" {
		code = "INTERNAL"
		message = "internal error"
		slog.Error("request failed", "err", err)
	}
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}
