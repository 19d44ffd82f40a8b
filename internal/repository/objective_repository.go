package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresObjectiveRepository implements domain.ObjectiveRepository using PostgreSQL
type PostgresObjectiveRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewPostgresObjectiveRepository creates a new objective repository
func NewPostgresObjectiveRepository(db database.DBTX, logger *slog.Logger) *PostgresObjectiveRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresObjectiveRepository{db: db, logger: logger}
}

const objectiveColumns = `id, tenant_id, team_id, owner_id, title, description, quarter, status, created_at, updated_at`

// Create creates a new objective
func (r *PostgresObjectiveRepository) Create(ctx context.Context, o *domain.Objective) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	query := `
		INSERT INTO objectives (id, tenant_id, team_id, owner_id, title, description, quarter, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		o.ID, o.TenantID, nullString(o.TeamID), o.OwnerID, o.Title, o.Description, o.Quarter, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		err = mapError(err, "objective")
		r.logger.Error("failed to create objective",
			slog.String("tenant_id", o.TenantID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// GetByID retrieves an objective inside the filter's tenant
func (r *PostgresObjectiveRepository) GetByID(ctx context.Context, f domain.TenantFilter, id string) (*domain.Objective, error) {
	clause, args := tenantClause(f, []any{id})
	query := `SELECT ` + objectiveColumns + ` FROM objectives WHERE id = $1` + clause

	o, err := scanObjective(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "objective")
	}
	return o, nil
}

// List lists objectives of the filter's tenant
func (r *PostgresObjectiveRepository) List(ctx context.Context, f domain.TenantFilter) ([]*domain.Objective, error) {
	clause, args := tenantClause(f, nil)
	query := `SELECT ` + objectiveColumns + ` FROM objectives WHERE TRUE` + clause + ` ORDER BY quarter DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "objectives")
	}
	defer rows.Close()

	var out []*domain.Objective
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, mapError(err, "objectives")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Update updates mutable objective fields; the row must belong to o.TenantID
func (r *PostgresObjectiveRepository) Update(ctx context.Context, o *domain.Objective) error {
	query := `
		UPDATE objectives
		SET team_id = $1, title = $2, description = $3, quarter = $4, status = $5, updated_at = NOW()
		WHERE id = $6 AND tenant_id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		nullString(o.TeamID), o.Title, o.Description, o.Quarter, string(o.Status), o.ID, o.TenantID,
	).Scan(&o.UpdatedAt)
	return mapError(err, "objective")
}

const keyResultColumns = `id, tenant_id, objective_id, title, start_value, target_value, current_value, unit, updated_at`

// CreateKeyResult creates a key result
func (r *PostgresObjectiveRepository) CreateKeyResult(ctx context.Context, kr *domain.KeyResult) error {
	if kr.ID == "" {
		kr.ID = uuid.NewString()
	}
	query := `
		INSERT INTO key_results (id, tenant_id, objective_id, title, start_value, target_value, current_value, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		kr.ID, kr.TenantID, kr.ObjectiveID, kr.Title, kr.StartValue, kr.TargetValue, kr.CurrentValue, kr.Unit,
	).Scan(&kr.UpdatedAt)
	return mapError(err, "key result")
}

// GetKeyResult retrieves a key result inside the filter's tenant
func (r *PostgresObjectiveRepository) GetKeyResult(ctx context.Context, f domain.TenantFilter, id string) (*domain.KeyResult, error) {
	clause, args := tenantClause(f, []any{id})
	query := `SELECT ` + keyResultColumns + ` FROM key_results WHERE id = $1` + clause

	kr, err := scanKeyResult(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "key result")
	}
	return kr, nil
}

// UpdateKeyResultValue records progress on a key result of tenantID
func (r *PostgresObjectiveRepository) UpdateKeyResultValue(ctx context.Context, tenantID, id string, value float64) (*domain.KeyResult, error) {
	query := `
		UPDATE key_results SET current_value = $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3
		RETURNING ` + keyResultColumns
	kr, err := scanKeyResult(r.db.QueryRowContext(ctx, query, value, id, tenantID))
	if err != nil {
		return nil, mapError(err, "key result")
	}
	return kr, nil
}

// ListKeyResults lists key results of the filter's tenant
func (r *PostgresObjectiveRepository) ListKeyResults(ctx context.Context, f domain.TenantFilter) ([]*domain.KeyResult, error) {
	clause, args := tenantClause(f, nil)
	query := `SELECT ` + keyResultColumns + ` FROM key_results WHERE TRUE` + clause + ` ORDER BY objective_id, title`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "key results")
	}
	defer rows.Close()

	var out []*domain.KeyResult
	for rows.Next() {
		kr, err := scanKeyResult(rows)
		if err != nil {
			return nil, mapError(err, "key results")
		}
		out = append(out, kr)
	}
	return out, rows.Err()
}

func scanObjective(row rowScanner) (*domain.Objective, error) {
	o := &domain.Objective{}
	var team sql.NullString
	var status string
	if err := row.Scan(&o.ID, &o.TenantID, &team, &o.OwnerID, &o.Title, &o.Description, &o.Quarter, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.TeamID = stringPtr(team)
	o.Status = domain.ObjectiveStatus(status)
	return o, nil
}

func scanKeyResult(row rowScanner) (*domain.KeyResult, error) {
	kr := &domain.KeyResult{}
	err := row.Scan(&kr.ID, &kr.TenantID, &kr.ObjectiveID, &kr.Title, &kr.StartValue, &kr.TargetValue, &kr.CurrentValue, &kr.Unit, &kr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return kr, nil
}
