package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresTeamRepository implements domain.TeamRepository using PostgreSQL
type PostgresTeamRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewPostgresTeamRepository creates a new team repository
func NewPostgresTeamRepository(db database.DBTX, logger *slog.Logger) *PostgresTeamRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTeamRepository{db: db, logger: logger}
}

// Create creates a new team
func (r *PostgresTeamRepository) Create(ctx context.Context, t *domain.Team) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO teams (id, tenant_id, name, leader_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, t.ID, t.TenantID, t.Name, nullString(t.LeaderID)).Scan(&t.CreatedAt)
	if err != nil {
		err = mapError(err, "team")
		r.logger.Error("failed to create team",
			slog.String("tenant_id", t.TenantID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// List lists teams of the filter's tenant
func (r *PostgresTeamRepository) List(ctx context.Context, f domain.TenantFilter) ([]*domain.Team, error) {
	clause, args := tenantClause(f, nil)
	query := `SELECT id, tenant_id, name, leader_id, created_at FROM teams WHERE TRUE` + clause + ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "teams")
	}
	defer rows.Close()

	var out []*domain.Team
	for rows.Next() {
		t := &domain.Team{}
		var leader sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &leader, &t.CreatedAt); err != nil {
			return nil, mapError(err, "teams")
		}
		t.LeaderID = stringPtr(leader)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateSprint records a sprint for a team of the same tenant
func (r *PostgresTeamRepository) CreateSprint(ctx context.Context, s *domain.Sprint) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `
		INSERT INTO sprints (id, tenant_id, team_id, name, start_date, end_date, planned_points, completed_points)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM teams WHERE id = $3 AND tenant_id = $2)
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.TenantID, s.TeamID, s.Name, s.StartDate, s.EndDate, s.PlannedPoints, s.CompletedPoints,
	)
	if err != nil {
		return mapError(err, "sprint")
	}
	return expectOne(res, "team")
}

// ListSprints lists sprints in start order. An empty teamID lists every team's sprints.
func (r *PostgresTeamRepository) ListSprints(ctx context.Context, f domain.TenantFilter, teamID string) ([]*domain.Sprint, error) {
	var args []any
	where := ` WHERE TRUE`
	if teamID != "" {
		args = append(args, teamID)
		where = ` WHERE team_id = $1`
	}
	clause, args := tenantClause(f, args)
	query := `
		SELECT id, tenant_id, team_id, name, start_date, end_date, planned_points, completed_points
		FROM sprints` + where + clause + ` ORDER BY team_id, start_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "sprints")
	}
	defer rows.Close()

	var out []*domain.Sprint
	for rows.Next() {
		s := &domain.Sprint{}
		if err := rows.Scan(&s.ID, &s.TenantID, &s.TeamID, &s.Name, &s.StartDate, &s.EndDate, &s.PlannedPoints, &s.CompletedPoints); err != nil {
			return nil, mapError(err, "sprints")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
