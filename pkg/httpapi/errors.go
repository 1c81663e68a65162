package httpapi

import (
	"errors"
	"net/http"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/persist"
	"github.com/Sumatoshi-tech/reqsketch/pkg/service"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrSketchNotFound):
		return http.StatusNotFound
	case errors.Is(err, req.ErrIncompatibleSketch):
		return http.StatusConflict
	case errors.Is(err, req.ErrEmptySketch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, req.ErrInvalidArgument),
		errors.Is(err, req.ErrCorruptState),
		errors.Is(err, persist.ErrInvalidName),
		errors.Is(err, service.ErrNoValues):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
