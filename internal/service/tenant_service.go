package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// TenantService manages organizations and the root user's selected organization.
type TenantService struct {
	tenants   domain.TenantRepository
	selection session.SelectionStore
	exec      *dataaccess.Executor
	audit     *audit.Logger
	logger    *slog.Logger
}

func NewTenantService(
	tenants domain.TenantRepository,
	selection session.SelectionStore,
	exec *dataaccess.Executor,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		tenants:   tenants,
		selection: selection,
		exec:      exec,
		audit:     auditLog,
		logger:    logger,
	}
}

// Create creates an active tenant.
func (s *TenantService) Create(ctx context.Context, state session.State, name, slug string) (*domain.Tenant, error) {
	p, err := requireRoot(state)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" {
		return nil, invalid("name is required")
	}
	if !slugPattern.MatchString(slug) {
		return nil, invalid("slug must be lowercase letters, digits and dashes")
	}

	t := &domain.Tenant{Name: name, Slug: slug, IsActive: true}
	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, t.ID, p.ID, "tenant.created", "tenant", t.ID, t.Slug)
	return t, nil
}

// List returns every tenant.
func (s *TenantService) List(ctx context.Context, state session.State) ([]*domain.Tenant, error) {
	if _, err := requireRoot(state); err != nil {
		return nil, err
	}
	return s.tenants.List(ctx)
}

// Deactivate soft-deletes a tenant. Its data stays but its users can no longer be assigned.
func (s *TenantService) Deactivate(ctx context.Context, state session.State, id string) error {
	p, err := requireRoot(state)
	if err != nil {
		return err
	}
	tenantID := security.SanitizeTenantID(id)
	if tenantID == nil {
		return fmt.Errorf("tenant: %w", domain.ErrNotFound)
	}
	if err := s.tenants.Deactivate(ctx, *tenantID); err != nil {
		return err
	}
	s.exec.Invalidate(*tenantID)
	s.audit.LogAction(ctx, *tenantID, p.ID, "tenant.deactivated", "tenant", *tenantID, "")
	return nil
}

// Select persists id as the root user's working tenant.
func (s *TenantService) Select(ctx context.Context, state session.State, id string) (*domain.Tenant, error) {
	p, err := requireRoot(state)
	if err != nil {
		return nil, err
	}
	tenantID := security.SanitizeTenantID(id)
	if tenantID == nil {
		return nil, invalid("tenant id is not valid")
	}
	t, err := s.tenants.GetByID(ctx, *tenantID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, invalid("organization %s is deactivated", t.Slug)
	}
	if err := s.selection.Save(ctx, p.ID, t.ID); err != nil {
		return nil, err
	}
	s.logger.Info("tenant selected", slog.String("user_id", p.ID), slog.String("tenant_id", t.ID))
	return t, nil
}

// Clear drops the root user's selection, returning them to the all-tenant view.
func (s *TenantService) Clear(ctx context.Context, state session.State) error {
	p, err := requireRoot(state)
	if err != nil {
		return err
	}
	return s.selection.Clear(ctx, p.ID)
}
