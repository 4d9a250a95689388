// Package httpx holds the JSON response helpers shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"classquiz/internal/models"
)

type errorBody struct {
	Error string      `json:"error"`
	Kind  models.Kind `json:"kind"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error renders err as a structured failure. The kind travels in the body so
// clients can distinguish eligibility refusals without parsing messages.
func Error(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	msg := err.Error()
	if kind == models.KindInternal {
		// Internal details stay in the logs.
		msg = "internal failure"
	}
	JSON(w, StatusOf(kind), errorBody{Error: msg, Kind: kind})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind models.Kind) int {
	switch kind {
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindNotYetOpen, models.KindClosed, models.KindAttemptsExhausted:
		return http.StatusForbidden
	case models.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
