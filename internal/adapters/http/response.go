package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"schooldash/internal/domain"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps domain errors to a status code. Unexpected errors are
// logged and answered with fallback alone.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidDomain):
		writeFail(w, http.StatusBadRequest, "Invalid domain format")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeFail(w, http.StatusConflict, "School with this domain already exists")
	case errors.Is(err, domain.ErrNotFound):
		writeFail(w, http.StatusNotFound, "School with this domain does not exist")
	case errors.Is(err, domain.ErrInvalidService):
		writeFail(w, http.StatusBadRequest, "Invalid service specified")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeFail(w, http.StatusInternalServerError, fallback)
	}
}
