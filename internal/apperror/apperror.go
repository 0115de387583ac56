// Package apperror defines the error taxonomy shared by services and the API
// layer. Services return these; the API layer maps them to HTTP statuses and
// machine-readable codes in one place.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrGeofence            = errors.New("geofence violation")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUpload              = errors.New("upload failed")
	ErrUniqueViolation     = errors.New("unique constraint violation")
	ErrAllocationExhausted = errors.New("identifier allocation exhausted")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // human-readable detail
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable category string for API responses.
func (e *AppError) Code() string {
	switch {
	case errors.Is(e.Err, ErrValidation):
		return "validation_error"
	case errors.Is(e.Err, ErrGeofence):
		return "geofence_violation"
	case errors.Is(e.Err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(e.Err, ErrForbidden):
		return "forbidden"
	case errors.Is(e.Err, ErrNotFound):
		return "not_found"
	case errors.Is(e.Err, ErrUpload):
		return "upload_error"
	case errors.Is(e.Err, ErrAllocationExhausted):
		return "allocation_exhausted"
	default:
		return "internal_error"
	}
}

func Validation(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// Geofence reports coordinates outside the service area. The message carries
// the offending point and the active bounds so clients can render a specific
// "outside service area" error rather than a generic validation failure.
func Geofence(lat, lng, minLat, maxLat, minLng, maxLng float64) *AppError {
	return &AppError{
		Err: ErrGeofence,
		Message: fmt.Sprintf("location (%.4f, %.4f) is outside the service area [%.2f, %.2f] x [%.2f, %.2f]",
			lat, lng, minLat, maxLat, minLng, maxLng),
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

func NotFound(resource, id string) *AppError {
	return &AppError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func Upload(err error) *AppError {
	return &AppError{Err: ErrUpload, Message: fmt.Sprintf("image upload failed: %v", err)}
}

func AllocationExhausted(lastPID string) *AppError {
	return &AppError{
		Err:     ErrAllocationExhausted,
		Message: fmt.Sprintf("could not allocate a unique plant identifier (last attempt %q)", lastPID),
	}
}
