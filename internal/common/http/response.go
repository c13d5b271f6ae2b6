// Package http provides standardized HTTP utilities for walletsync
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baely/walletsync/internal/common/errors"
)

// Response is a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Accepted acknowledges a webhook that was queued for processing
func Accepted(w http.ResponseWriter) {
	JSON(w, http.StatusAccepted, Response{
		Success: true,
		Data:    map[string]string{"status": "accepted"},
	})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, err error, statusCode int) {
	JSON(w, statusCode, Response{
		Success: false,
		Error:   err.Error(),
	})
}

// StatusCode determines the HTTP status for an error
func StatusCode(err error) int {
	var providerErr *errors.ProviderError

	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// HandleError writes err with the status code matching its type
func HandleError(w http.ResponseWriter, err error) {
	Error(w, err, StatusCode(err))
}

// NewRouter creates a new Chi router with standard middleware
func NewRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	return r
}
