package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// SprintInput describes a finished or running sprint.
type SprintInput struct {
	Name            string    `json:"name"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	PlannedPoints   int       `json:"plannedPoints"`
	CompletedPoints int       `json:"completedPoints"`
}

// TeamService manages teams and their sprint metrics.
type TeamService struct {
	teams  domain.TeamRepository
	exec   *dataaccess.Executor
	authz  *security.AuthorizationService
	audit  *audit.Logger
	logger *slog.Logger
}

func NewTeamService(
	teams domain.TeamRepository,
	exec *dataaccess.Executor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *TeamService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TeamService{teams: teams, exec: exec, authz: authz, audit: auditLog, logger: logger}
}

func (s *TeamService) ListTeams(ctx context.Context, state session.State) ([]*domain.Team, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "teams", s.teams.List)
}

// CreateTeam creates a team in the caller's tenant. Leaders and above only.
func (s *TeamService) CreateTeam(ctx context.Context, state session.State, name string, leaderID *string) (*domain.Team, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermManageTeams); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}

	t := &domain.Team{Name: name, LeaderID: leaderID}
	if err := dataaccess.Mutate(ctx, s.exec, dataaccess.ScopeFor(state), t, s.teams.Create); err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, t.TenantID, p.ID, "team.created", "team", t.ID, t.Name)
	return t, nil
}

// ListSprints lists a team's sprints in start order. An empty teamID lists all teams.
func (s *TeamService) ListSprints(ctx context.Context, state session.State, teamID string) ([]*domain.Sprint, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "sprints:"+teamID,
		func(ctx context.Context, f domain.TenantFilter) ([]*domain.Sprint, error) {
			return s.teams.ListSprints(ctx, f, teamID)
		})
}

// RecordSprint stores sprint metrics for a team of the caller's tenant.
func (s *TeamService) RecordSprint(ctx context.Context, state session.State, teamID string, in SprintInput) (*domain.Sprint, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermManageTeams); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return nil, invalid("name is required")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return nil, invalid("start and end dates are required")
	case in.EndDate.Before(in.StartDate):
		return nil, invalid("sprint ends before it starts")
	case in.PlannedPoints < 0 || in.CompletedPoints < 0:
		return nil, invalid("points cannot be negative")
	}

	sp := &domain.Sprint{
		TeamID:          teamID,
		Name:            in.Name,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		PlannedPoints:   in.PlannedPoints,
		CompletedPoints: in.CompletedPoints,
	}
	if err := dataaccess.Mutate(ctx, s.exec, dataaccess.ScopeFor(state), sp, s.teams.CreateSprint); err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, sp.TenantID, p.ID, "sprint.recorded", "sprint", sp.ID, sp.Name)
	return sp, nil
}
