package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// TeamHandler serves teams and their sprints.
type TeamHandler struct {
	teams  *service.TeamService
	logger *slog.Logger
}

func NewTeamHandler(teams *service.TeamService, logger *slog.Logger) *TeamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamHandler{teams: teams, logger: logger}
}

type CreateTeamRequest struct {
	Name     string  `json:"name"`
	LeaderID *string `json:"leaderId,omitempty"`
}

// List handles GET /api/teams
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, ok, err := h.teams.ListTeams(r.Context(), session.StateFromContext(r.Context()))
	respondFetched(w, r, h.logger, teams, ok, err)
}

// Create handles POST /api/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	t, err := h.teams.CreateTeam(r.Context(), session.StateFromContext(r.Context()), req.Name, req.LeaderID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListSprints handles GET /api/teams/{id}/sprints
func (h *TeamHandler) ListSprints(w http.ResponseWriter, r *http.Request) {
	sprints, ok, err := h.teams.ListSprints(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"))
	respondFetched(w, r, h.logger, sprints, ok, err)
}

// RecordSprint handles POST /api/teams/{id}/sprints
func (h *TeamHandler) RecordSprint(w http.ResponseWriter, r *http.Request) {
	var in service.SprintInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	s, err := h.teams.RecordSprint(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}
