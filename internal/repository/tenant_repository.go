package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db database.DBTX, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create creates a new tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tenants (id, name, slug, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.IsActive).Scan(
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		err = mapError(err, "tenant")
		r.logger.Error("failed to create tenant",
			slog.String("slug", tenant.Slug),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, "tenant")
	}
	return t, nil
}

// List lists all tenants, active first
func (r *PostgresTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, slug, is_active, created_at, updated_at
		FROM tenants
		ORDER BY is_active DESC, name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list tenants", slog.String("error", err.Error()))
		return nil, mapError(err, "tenants")
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t := &domain.Tenant{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapError(err, "tenants")
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Deactivate soft-deletes a tenant
func (r *PostgresTenantRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tenants SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "tenant")
	}
	return expectOne(res, "tenant")
}
