package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
)

const uniqueViolation = "23505"

// mapError translates driver errors into domain sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("failed to access %s: %w", what, err)
}

// tenantClause appends "AND tenant_id = $n" when f names a tenant.
func tenantClause(f domain.TenantFilter, args []any) (string, []any) {
	if f.TenantID == nil {
		return "", args
	}
	args = append(args, *f.TenantID)
	return fmt.Sprintf(" AND tenant_id = $%d", len(args)), args
}

// expectOne returns ErrNotFound when an UPDATE touched no rows.
func expectOne(res sql.Result, what string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
