package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/logger"
	"github.com/igrejaonline/portal/internal/middleware"
	"github.com/igrejaonline/portal/internal/model"
)

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageBody{Message: message})
}

// writeError is the error boundary of every handler: classified errors keep
// their status and message, everything else is logged and answered with a
// generic 500 carrying fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.LogError(slog.Default(), fallback, err,
			"method", r.Method,
			"path", r.URL.Path,
			"timeout", apperr.IsTimeout(err),
		)
	}
	writeMessage(w, status, apperr.Message(err, fallback))
}

// pathID returns the canonical form of the {id} path segment, answering 400
// when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid ID format")
		return "", false
	}
	return id.String(), true
}

func clientInfo(r *http.Request) model.ClientInfo {
	return model.ClientInfo{
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
	}
}
