package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/connector"
	"github.com/yourorg/datalens/internal/dashboard"
	"github.com/yourorg/datalens/internal/validation"
)

// maxBodyBytes bounds request bodies; a full dashboard replace fits easily.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr), connector.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, dashboard.ErrNotFound), errors.Is(err, connector.ErrUnknownConnector):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as {"error": ...}. Internal failures that are not
// upstream fetch errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()

	entry := logrus.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"request_id": middleware.GetReqID(r.Context()),
	}).WithError(err)

	if status == http.StatusInternalServerError {
		var fetchErr *connector.FetchError
		if !errors.As(err, &fetchErr) {
			msg = "Internal server error"
		}
		entry.Error("Request error")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody reads a JSON request body into v. Malformed bodies are
// validation errors.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return validation.Errorf("", "request body is required")
	default:
		return validation.Errorf("", "invalid request body: %v", err)
	}
}

func requireField(field string, present bool) error {
	if present {
		return nil
	}
	return validation.Errorf(field, "is required")
}
