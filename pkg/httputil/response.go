// Package httputil writes the JSON envelopes shared by every API route.
//
// Successful responses carry "status":"ok" next to their payload fields;
// failures carry "status":"error" and a human-readable "error" string.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status values used in every envelope.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Fields is the payload of an envelope response.
type Fields map[string]any

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteOK writes a 200 response with "status":"ok" merged into fields.
func WriteOK(w http.ResponseWriter, fields Fields) {
	body := make(Fields, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = StatusOK
	WriteJSON(w, http.StatusOK, body)
}

// WriteError writes {"status":"error","error":message} with the given code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Fields{
		"status": StatusError,
		"error":  message,
	})
}

// WriteErrorAt is WriteError with a "timestamp" field, used by endpoints
// that report when a simulated fault happened.
func WriteErrorAt(w http.ResponseWriter, status int, message string, at time.Time) {
	WriteJSON(w, status, Fields{
		"status":    StatusError,
		"error":     message,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	})
}

// WriteNotFound writes a 404 error envelope.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteBadRequest writes a 400 error envelope.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteTooManyRequests writes a 429 error envelope.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
