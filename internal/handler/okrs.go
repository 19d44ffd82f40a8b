package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// OKRHandler serves objectives and key results.
type OKRHandler struct {
	okrs   *service.OKRService
	logger *slog.Logger
}

func NewOKRHandler(okrs *service.OKRService, logger *slog.Logger) *OKRHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OKRHandler{okrs: okrs, logger: logger}
}

// ProgressRequest reports a key result's current value.
type ProgressRequest struct {
	Value *float64 `json:"value"`
}

// List handles GET /api/objectives
func (h *OKRHandler) List(w http.ResponseWriter, r *http.Request) {
	objs, ok, err := h.okrs.ListObjectives(r.Context(), session.StateFromContext(r.Context()))
	respondFetched(w, r, h.logger, objs, ok, err)
}

// Get handles GET /api/objectives/{id}
func (h *OKRHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, ok, err := h.okrs.GetObjective(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"))
	respondFetched(w, r, h.logger, detail, ok, err)
}

// Create handles POST /api/objectives
func (h *OKRHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ObjectiveInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	obj, err := h.okrs.CreateObjective(r.Context(), session.StateFromContext(r.Context()), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

// Update handles PUT /api/objectives/{id}
func (h *OKRHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.ObjectiveInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	obj, err := h.okrs.UpdateObjective(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// AddKeyResult handles POST /api/objectives/{id}/key-results
func (h *OKRHandler) AddKeyResult(w http.ResponseWriter, r *http.Request) {
	var in service.KeyResultInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	kr, err := h.okrs.AddKeyResult(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, kr)
}

// UpdateProgress handles PATCH /api/key-results/{id}
func (h *OKRHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	kr, err := h.okrs.UpdateProgress(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), *req.Value)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, kr)
}
