package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/service"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

const noOrganization = "no organization"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// statusFor maps service errors to HTTP status codes and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, dataaccess.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrInactive):
		return http.StatusUnauthorized, "account is deactivated"
	case errors.Is(err, domain.ErrNoTenant):
		return http.StatusConflict, noOrganization
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	}
	return http.StatusInternalServerError, "internal error"
}

// respondError writes err as JSON. Unexpected errors are logged; their text never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, msg)
}

// respondFetched writes a scoped read. A skipped query means the caller has no organization.
func respondFetched[T any](w http.ResponseWriter, r *http.Request, log *slog.Logger, v T, ok bool, err error) {
	if err != nil {
		respondError(w, r, log, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, noOrganization)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func badRequest(w http.ResponseWriter, log *slog.Logger, err error) {
	log.Debug("invalid request body", slog.String("error", err.Error()))
	writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
}
