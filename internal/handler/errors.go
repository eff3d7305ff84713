package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Client-facing messages. Internal error detail is logged, never returned.
const (
	msgInvalidJSON    = "Invalid request body"
	msgURLRequired    = "URL is required"
	msgPreviewFailed  = "Failed to fetch link preview"
	msgInvalidLink    = "This link is invalid"
	msgCompanyMissing = "Company not found"
	msgJobMissing     = "Job not found"
	msgInternal       = "An internal error occurred"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, msgInternal)
}
