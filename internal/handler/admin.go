package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// AdminHandler serves user administration.
type AdminHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewAdminHandler(profiles *service.ProfileService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{profiles: profiles, logger: logger}
}

// ListProfiles handles GET /api/admin/profiles
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, ok, err := h.profiles.List(r.Context(), session.StateFromContext(r.Context()))
	respondFetched(w, r, h.logger, profiles, ok, err)
}

// UpdateProfile handles PATCH /api/admin/profiles/{id}
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd service.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	p, err := h.profiles.Update(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), upd)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
