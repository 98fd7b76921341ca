package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	resp := ErrorResponse{Error: err.Error()}

	var de *service.DispatchError
	if errors.As(err, &de) {
		resp.Kind = string(de.Kind)
		resp.Status = string(de.Status)
		resp.Retryable = de.Retryable()
	}

	c.JSON(mapErrorToHTTPStatus(err), resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrRideRequestNotFound):
		return http.StatusNotFound

	// Business rule and concurrency conflicts
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrAlreadyDeclined),
		errors.Is(err, service.ErrStoreConflict):
		return http.StatusConflict

	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
