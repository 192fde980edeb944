package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-attempt-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

// statusFor maps engine errors onto HTTP status codes. Unclassified errors are
// storage or infrastructure faults.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAttemptExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal fault details from clients.
func publicMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		if errors.Is(err, domain.ErrUnscoreable) {
			return "question cannot be scored"
		}
		return "internal error"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Message: publicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
