// Package api contains helpers for writing JSON responses and common http middlewares.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Error ...
// swagger:model
type Error struct {
	Error string `json:"error"`
	// Fields contains per-field validation errors.
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteOK writes v as JSON with status.
func WriteOK(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to write response")
	}
}

// WriteError writes error message with status.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteOK(w, status, Error{Error: message})
}

// WriteValidationError writes 400 with per-field errors.
func WriteValidationError(w http.ResponseWriter, fields map[string]string) {
	WriteOK(w, http.StatusBadRequest, Error{Error: "invalid input", Fields: fields})
}

// WriteInternalErrorf logs error with request logger and writes 500 without details.
func WriteInternalErrorf(ctx context.Context, w http.ResponseWriter, format string, args ...interface{}) {
	GetLogger(ctx).Error(fmt.Sprintf(format, args...))

	WriteError(w, http.StatusInternalServerError, "internal error")
}
