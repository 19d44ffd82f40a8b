package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresWikiRepository implements domain.WikiRepository using PostgreSQL
type PostgresWikiRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

func NewPostgresWikiRepository(db database.DBTX, logger *slog.Logger) *PostgresWikiRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWikiRepository{db: db, logger: logger}
}

func (r *PostgresWikiRepository) Create(ctx context.Context, d *domain.WikiDocument) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	query := `
		INSERT INTO wiki_documents (id, tenant_id, title, body, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.TenantID, d.Title, d.Body, d.AuthorID).Scan(&d.UpdatedAt)
	return mapError(err, "wiki document")
}

func (r *PostgresWikiRepository) GetByID(ctx context.Context, f domain.TenantFilter, id string) (*domain.WikiDocument, error) {
	clause, args := tenantClause(f, []any{id})
	query := `SELECT id, tenant_id, title, body, author_id, updated_at FROM wiki_documents WHERE id = $1` + clause

	d := &domain.WikiDocument{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&d.ID, &d.TenantID, &d.Title, &d.Body, &d.AuthorID, &d.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "wiki document")
	}
	return d, nil
}

// List returns documents without bodies, newest first.
func (r *PostgresWikiRepository) List(ctx context.Context, f domain.TenantFilter) ([]*domain.WikiDocument, error) {
	clause, args := tenantClause(f, nil)
	query := `SELECT id, tenant_id, title, author_id, updated_at FROM wiki_documents WHERE TRUE` + clause + ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "wiki documents")
	}
	defer rows.Close()

	var out []*domain.WikiDocument
	for rows.Next() {
		d := &domain.WikiDocument{}
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Title, &d.AuthorID, &d.UpdatedAt); err != nil {
			return nil, mapError(err, "wiki documents")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresWikiRepository) Update(ctx context.Context, d *domain.WikiDocument) error {
	query := `
		UPDATE wiki_documents SET title = $1, body = $2, updated_at = NOW()
		WHERE id = $3 AND tenant_id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, d.Title, d.Body, d.ID, d.TenantID).Scan(&d.UpdatedAt)
	return mapError(err, "wiki document")
}
