// ABOUTME: JSON response helpers shared by every handler
// ABOUTME: Envelope writers, request decoding and store-error to status mapping

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/freegoat/manga-admin/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// envelope is the shape of every mutation response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("failed to encode response", "error", err)
	}
}

// writeEnvelope writes {success, message, data?}. success follows the status.
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// sendJSONError writes {"error": message}. Used for routing failures.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// storeFailure maps a store error to a status and envelope.
// notFound is the message used for store.ErrNotFound.
func (s *Server) storeFailure(w http.ResponseWriter, op string, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeEnvelope(w, http.StatusNotFound, notFound, nil)
	case errors.Is(err, store.ErrInvalid):
		writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, store.ErrUsernameExists):
		writeEnvelope(w, http.StatusConflict, "Username already exists", nil)
	default:
		s.logger.Error("store operation failed", "op", op, "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
