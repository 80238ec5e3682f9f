package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vainnor/pomobot/types"
)

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNoChannelBound),
		errors.Is(err, types.ErrSessionAlreadyRunning),
		errors.Is(err, types.ErrNoSessionRunning):
		return http.StatusConflict
	case errors.Is(err, types.ErrChannelUnresolvable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
