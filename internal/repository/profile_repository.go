package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresProfileRepository implements domain.ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewPostgresProfileRepository creates a new profile repository
func NewPostgresProfileRepository(db database.DBTX, logger *slog.Logger) *PostgresProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileRepository{db: db, logger: logger}
}

const profileColumns = `id, email, full_name, role, tenant_id, is_active, created_at, updated_at`

// Create creates a new profile
func (r *PostgresProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, role, tenant_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		normalizeEmail(p.Email),
		p.FullName,
		string(p.Role),
		nullString(p.TenantID),
		p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		err = mapError(err, "profile")
		r.logger.Error("failed to create profile",
			slog.String("id", p.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// GetByID retrieves a profile by ID, active or not
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "profile")
	}
	return p, nil
}

// List lists profiles of the filter's tenant, or every profile for an all-tenant filter
func (r *PostgresProfileRepository) List(ctx context.Context, f domain.TenantFilter) ([]*domain.Profile, error) {
	clause, args := tenantClause(f, nil)
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE TRUE` + clause + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list profiles", slog.String("error", err.Error()))
		return nil, mapError(err, "profiles")
	}
	defer rows.Close()

	var out []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, mapError(err, "profiles")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateRole changes a profile's role
func (r *PostgresProfileRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET role = $1, updated_at = NOW() WHERE id = $2`, string(role), id)
	if err != nil {
		return mapError(err, "profile")
	}
	return expectOne(res, "profile")
}

// SetActive soft-deletes or reactivates a profile
func (r *PostgresProfileRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return mapError(err, "profile")
	}
	return expectOne(res, "profile")
}

// AssignTenant moves a profile into a tenant, or out of every tenant with nil
func (r *PostgresProfileRepository) AssignTenant(ctx context.Context, id string, tenantID *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET tenant_id = $1, updated_at = NOW() WHERE id = $2`, nullString(tenantID), id)
	if err != nil {
		return mapError(err, "profile")
	}
	return expectOne(res, "profile")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	var role string
	var tenant sql.NullString
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &role, &tenant, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = domain.Role(role)
	p.TenantID = stringPtr(tenant)
	return p, nil
}
