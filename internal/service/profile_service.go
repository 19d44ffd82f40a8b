package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// ProfileUpdate is a partial change to another user's profile. Nil fields are left alone.
// TenantID is root only; an empty string removes the user from their tenant.
type ProfileUpdate struct {
	Role     *domain.Role `json:"role,omitempty"`
	IsActive *bool        `json:"isActive,omitempty"`
	TenantID *string      `json:"tenantId,omitempty"`
}

// ProfileService administers user profiles.
type ProfileService struct {
	profiles domain.ProfileRepository
	tenants  domain.TenantRepository
	exec     *dataaccess.Executor
	authz    *security.AuthorizationService
	audit    *audit.Logger
	logger   *slog.Logger
}

func NewProfileService(
	profiles domain.ProfileRepository,
	tenants domain.TenantRepository,
	exec *dataaccess.Executor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		profiles: profiles,
		tenants:  tenants,
		exec:     exec,
		authz:    authz,
		audit:    auditLog,
		logger:   logger,
	}
}

// List returns the profiles of the caller's scope. ok is false when no tenant is resolved.
func (s *ProfileService) List(ctx context.Context, state session.State) ([]*domain.Profile, bool, error) {
	p, err := actor(state)
	if err != nil {
		return nil, false, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermManageUsers); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "profiles", s.profiles.List)
}

// Update applies upd to the profile targetID.
func (s *ProfileService) Update(ctx context.Context, state session.State, targetID string, upd ProfileUpdate) (*domain.Profile, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermManageUsers); err != nil {
		return nil, err
	}
	if upd.Role == nil && upd.IsActive == nil && upd.TenantID == nil {
		return nil, invalid("nothing to update")
	}

	target, err := s.profiles.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RoleRoot {
		if err := s.authz.ValidateTenantAccess(p, state.SelectedTenant, target.Tenant()); err != nil {
			return nil, err
		}
	}
	beforeTenant := target.Tenant()

	if upd.Role != nil {
		if err := s.changeRole(ctx, p, target, *upd.Role); err != nil {
			return nil, err
		}
	}
	if upd.IsActive != nil {
		if err := s.setActive(ctx, p, target, *upd.IsActive); err != nil {
			return nil, err
		}
	}
	if upd.TenantID != nil {
		if err := s.assignTenant(ctx, p, target, *upd.TenantID); err != nil {
			return nil, err
		}
	}

	for _, t := range []string{beforeTenant, target.Tenant()} {
		if t != "" {
			s.exec.Invalidate(t)
		}
	}
	return s.profiles.GetByID(ctx, targetID)
}

func (s *ProfileService) changeRole(ctx context.Context, p, target *domain.Profile, next domain.Role) error {
	if !next.Valid() {
		return invalid("unknown role %q", next)
	}
	if !security.CanAssignRole(p, target, next) {
		s.audit.LogDenied(ctx, target.Tenant(), p.ID, fmt.Sprintf("cannot assign %s to %s", next, target.ID))
		return fmt.Errorf("%w: cannot assign role %s", domain.ErrForbidden, next)
	}
	if err := s.profiles.UpdateRole(ctx, target.ID, next); err != nil {
		return err
	}
	s.audit.LogAction(ctx, target.Tenant(), p.ID, "profile.role_changed", "profile", target.ID,
		fmt.Sprintf("%s -> %s", target.Role, next))
	target.Role = next
	return nil
}

func (s *ProfileService) setActive(ctx context.Context, p, target *domain.Profile, active bool) error {
	if p.ID == target.ID {
		return fmt.Errorf("%w: cannot change your own status", domain.ErrForbidden)
	}
	if p.Role != domain.RoleRoot && !p.Role.Above(target.Role) {
		return fmt.Errorf("%w: cannot change status of a %s", domain.ErrForbidden, target.Role)
	}
	if err := s.profiles.SetActive(ctx, target.ID, active); err != nil {
		return err
	}
	action := "profile.deactivated"
	if active {
		action = "profile.activated"
	}
	s.audit.LogAction(ctx, target.Tenant(), p.ID, action, "profile", target.ID, "")
	target.IsActive = active
	return nil
}

func (s *ProfileService) assignTenant(ctx context.Context, p, target *domain.Profile, raw string) error {
	if p.Role != domain.RoleRoot {
		return fmt.Errorf("%w: only root can move users between organizations", domain.ErrForbidden)
	}

	var tenantID *string
	if raw != "" {
		tenantID = security.SanitizeTenantID(raw)
		if tenantID == nil {
			return invalid("tenant id is not valid")
		}
		t, err := s.tenants.GetByID(ctx, *tenantID)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return invalid("organization %s is deactivated", t.Slug)
		}
	}

	if err := s.profiles.AssignTenant(ctx, target.ID, tenantID); err != nil {
		return err
	}
	target.TenantID = tenantID
	s.audit.LogAction(ctx, target.Tenant(), p.ID, "profile.tenant_assigned", "profile", target.ID, "")
	return nil
}
