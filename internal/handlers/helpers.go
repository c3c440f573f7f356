package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/middleware"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &v, nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &v, nil
}

// caller returns the authenticated caller, writing 401 when there is none
func caller(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (service.Caller, bool) {
	c, ok := middleware.CallerFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authentication required", logger)
	}
	return c, ok
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, repository.ErrDuplicateName),
		errors.Is(err, repository.ErrInvalidCategory),
		errors.Is(err, repository.ErrInvalidIngredients),
		errors.Is(err, repository.ErrInvalidAllergens):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err once and writes the matching response. Causes of
// unexpected failures never reach the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, msg string, attrs ...any) {
	status := statusFor(err)
	attrs = append(attrs, "error", err, "status", status)
	if status == http.StatusInternalServerError {
		logger.Error(msg, attrs...)
		WriteError(w, status, "Internal server error", logger)
		return
	}
	logger.Info(msg, attrs...)
	WriteError(w, status, err.Error(), logger)
}
