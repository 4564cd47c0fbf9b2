package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/pivolan/benford_analyzer/benford"
	"github.com/pivolan/benford_analyzer/ingest"
	"github.com/pivolan/benford_analyzer/storage"
)

// APIError is the JSON body of every failed API request.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	RequestID  string      `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	e.RequestID = middleware.GetReqID(r.Context())
	render.Status(r, e.StatusCode)
	return nil
}

func NewAPIError(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// toAPIError maps domain errors onto HTTP statuses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &validationErr):
		return NewAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", validationErr.Fields)
	case errors.Is(err, storage.ErrNotFound):
		return NewAPIError(http.StatusNotFound, "NOT_FOUND", "Dataset not found", nil)
	case errors.Is(err, ingest.ErrTooLarge):
		return NewAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Upload exceeds the allowed size", err.Error())
	case errors.Is(err, ingest.ErrUnreadableUpload):
		return NewAPIError(http.StatusBadRequest, "INVALID_UPLOAD", "Upload could not be read", err.Error())
	case errors.Is(err, benford.ErrInvalidBase),
		errors.Is(err, ingest.ErrUnsupportedDelimiter),
		errors.Is(err, ingest.ErrEmptyArchive):
		return NewAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value", err.Error())
	}
	return NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", nil)
}
