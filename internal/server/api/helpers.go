package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/greenpanipat/plantation-tracker/internal/apperror"
	"github.com/greenpanipat/plantation-tracker/pkg/models"
)

func writeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, data)
}

func respondErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// respondAppError maps the service error taxonomy to HTTP statuses and
// machine-readable codes. Anything outside the taxonomy is a 500 with a
// generic message; the detail goes to the log, not the client.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Printf("internal error: %v", err)
		respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Error:   http.StatusText(http.StatusInternalServerError),
			Code:    "internal_error",
			Message: "something went wrong, try again later",
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(appErr.Err, apperror.ErrValidation), errors.Is(appErr.Err, apperror.ErrGeofence):
		status = http.StatusBadRequest
	case errors.Is(appErr.Err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(appErr.Err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(appErr.Err, apperror.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", appErr)
	}

	respondJSON(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    appErr.Code(),
		Message: appErr.Message,
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
