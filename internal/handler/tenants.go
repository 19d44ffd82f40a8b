package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// TenantHandler serves organization management and the root user's tenant selection.
type TenantHandler struct {
	tenants *service.TenantService
	logger  *slog.Logger
}

func NewTenantHandler(tenants *service.TenantService, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{tenants: tenants, logger: logger}
}

type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type SelectTenantRequest struct {
	TenantID string `json:"tenantId"`
}

// List handles GET /api/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context(), session.StateFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// Create handles POST /api/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	t, err := h.tenants.Create(r.Context(), session.StateFromContext(r.Context()), req.Name, req.Slug)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Deactivate handles DELETE /api/tenants/{id}
func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Deactivate(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles PUT /api/session/tenant
func (h *TenantHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	t, err := h.tenants.Select(r.Context(), session.StateFromContext(r.Context()), req.TenantID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Clear handles DELETE /api/session/tenant
func (h *TenantHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Clear(r.Context(), session.StateFromContext(r.Context())); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
