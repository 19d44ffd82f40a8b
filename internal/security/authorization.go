package security

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermEditOKRs      Permission = "edit_okrs"
	PermEditWiki      Permission = "edit_wiki"
	PermManageTeams   Permission = "manage_teams"
	PermViewReports   Permission = "view_reports"
	PermManageUsers   Permission = "manage_users"
	PermManageTenants Permission = "manage_tenants"
)

// RolePermissions maps roles to their permissions. Root is not listed: it holds every permission.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermEditOKRs,
		PermEditWiki,
		PermManageTeams,
		PermViewReports,
		PermManageUsers,
	},
	domain.RoleLeader: {
		PermEditOKRs,
		PermEditWiki,
		PermManageTeams,
	},
	domain.RoleMember: {
		PermEditOKRs,
		PermEditWiki,
	},
}

// HasRole reports whether current is in allowed. Root always passes, even for an empty set.
func HasRole(current domain.Role, allowed []domain.Role) bool {
	if current == domain.RoleRoot {
		return true
	}
	return slices.Contains(allowed, current)
}

// HasMinimumRole reports whether current ranks at or above minimum.
func HasMinimumRole(current, minimum domain.Role) bool {
	return current.AtLeast(minimum)
}

// SanitizeTenantID trims raw and returns it unchanged when it is a hyphenated
// UUID. Anything else yields nil.
func SanitizeTenantID(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	// uuid.Parse also takes urn and braced forms; only the 36-character one is stored.
	if len(trimmed) != 36 {
		return nil
	}
	if _, err := uuid.Parse(trimmed); err != nil {
		return nil
	}
	return &trimmed
}

func sanitizePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	return SanitizeTenantID(*raw)
}

// ResolveTenantID returns the effective tenant id for a profile.
// Root users get the session-selected tenant when one is set, otherwise their own
// (possibly nil) tenant. Everyone else is pinned to their profile's tenant and any
// selection is ignored. A malformed selection counts as no selection.
func ResolveTenantID(profile *domain.Profile, selected string) *string {
	if profile == nil {
		return nil
	}
	if profile.Role == domain.RoleRoot {
		if sel := SanitizeTenantID(selected); sel != nil {
			return sel
		}
	}
	return sanitizePtr(profile.TenantID)
}

// CanQueryAllTenants is true only for root with no tenant selected.
func CanQueryAllTenants(profile *domain.Profile, selected string) bool {
	if profile == nil || profile.Role != domain.RoleRoot {
		return false
	}
	return SanitizeTenantID(selected) == nil
}

// CanAssignRole reports whether actor may give target the role next.
// Root may assign anything; others only roles strictly below their own, and never to
// someone currently at or above their own rank. Nobody changes their own role.
func CanAssignRole(actor *domain.Profile, target *domain.Profile, next domain.Role) bool {
	if actor == nil || target == nil || !next.Valid() {
		return false
	}
	if actor.ID == target.ID {
		return false
	}
	if actor.Role == domain.RoleRoot {
		return true
	}
	return actor.Role.Above(next) && actor.Role.Above(target.Role)
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	if role == domain.RoleRoot {
		return true
	}
	return slices.Contains(RolePermissions[role], permission)
}

// ValidatePermission returns an error wrapping domain.ErrForbidden when role lacks permission.
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, role, permission)
	}
	return nil
}

// ValidateTenantAccess checks that a resource belongs to the caller's effective tenant.
// Root without a selected tenant may touch any tenant's resources.
func (as *AuthorizationService) ValidateTenantAccess(profile *domain.Profile, selected, resourceTenantID string) error {
	if CanQueryAllTenants(profile, selected) {
		return nil
	}
	effective := ResolveTenantID(profile, selected)
	if effective == nil || *effective != resourceTenantID {
		userID := ""
		if profile != nil {
			userID = profile.ID
		}
		as.logger.Warn("tenant access denied",
			slog.String("user_id", userID),
			slog.String("requested_tenant", resourceTenantID),
		)
		return fmt.Errorf("%w: invalid tenant", domain.ErrForbidden)
	}
	return nil
}
