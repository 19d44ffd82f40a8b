package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

// PostgresAccountRepository implements domain.AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db *sql.DB, logger *slog.Logger) *PostgresAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAccountRepository{db: db, logger: logger}
}

// CreateAccount inserts the credential and the profile in one transaction.
func (r *PostgresAccountRepository) CreateAccount(ctx context.Context, cred *domain.Credential, p *domain.Profile) error {
	return database.WithTx(ctx, r.db, func(tx database.DBTX) error {
		if err := NewPostgresCredentialRepository(tx, r.logger).Create(ctx, cred); err != nil {
			return err
		}
		return NewPostgresProfileRepository(tx, r.logger).Create(ctx, p)
	})
}
