package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

type WikiHandler struct {
	wiki   *service.WikiService
	logger *slog.Logger
}

func NewWikiHandler(wiki *service.WikiService, logger *slog.Logger) *WikiHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WikiHandler{wiki: wiki, logger: logger}
}

// List handles GET /api/wiki
func (h *WikiHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, ok, err := h.wiki.List(r.Context(), session.StateFromContext(r.Context()))
	respondFetched(w, r, h.logger, docs, ok, err)
}

// Get handles GET /api/wiki/{id}
func (h *WikiHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok, err := h.wiki.Get(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"))
	respondFetched(w, r, h.logger, doc, ok, err)
}

// Create handles POST /api/wiki
func (h *WikiHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.WikiInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	doc, err := h.wiki.Create(r.Context(), session.StateFromContext(r.Context()), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Update handles PUT /api/wiki/{id}
func (h *WikiHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.WikiInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	doc, err := h.wiki.Update(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
