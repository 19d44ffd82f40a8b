package repository

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresCredentialRepository implements domain.CredentialRepository using PostgreSQL
type PostgresCredentialRepository struct {
	db     database.DBTX
	logger *slog.Logger
}

// NewPostgresCredentialRepository creates a new credential repository
func NewPostgresCredentialRepository(db database.DBTX, logger *slog.Logger) *PostgresCredentialRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCredentialRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a credential. Emails are matched case-insensitively.
func (r *PostgresCredentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
		INSERT INTO credentials (user_id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	cred.Email = normalizeEmail(cred.Email)
	err := r.db.QueryRowContext(ctx, query, cred.UserID, cred.Email, cred.PasswordHash).Scan(&cred.CreatedAt)
	if err != nil {
		err = mapError(err, "credential")
		r.logger.Error("failed to create credential",
			slog.String("email", cred.Email),
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// GetByEmail retrieves a credential by email
func (r *PostgresCredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	query := `
		SELECT user_id, email, password_hash, created_at
		FROM credentials
		WHERE email = $1
	`
	return r.scanOne(ctx, query, normalizeEmail(email))
}

// GetByUserID retrieves a credential by user id
func (r *PostgresCredentialRepository) GetByUserID(ctx context.Context, userID string) (*domain.Credential, error) {
	query := `
		SELECT user_id, email, password_hash, created_at
		FROM credentials
		WHERE user_id = $1
	`
	return r.scanOne(ctx, query, userID)
}

func (r *PostgresCredentialRepository) scanOne(ctx context.Context, query string, arg string) (*domain.Credential, error) {
	cred := &domain.Credential{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&cred.UserID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, "credential")
	}
	return cred, nil
}

// UpdatePassword replaces the stored hash
func (r *PostgresCredentialRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE credentials SET password_hash = $1 WHERE user_id = $2`, hash, userID)
	if err != nil {
		return mapError(err, "credential")
	}
	return expectOne(res, "credential")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
