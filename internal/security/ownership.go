package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
)

// ResourceType identifies the kind of resource being modified
type ResourceType string

const (
	ResourceObjective ResourceType = "objective"
	ResourceKeyResult ResourceType = "key_result"
	ResourceWikiDoc   ResourceType = "wiki_document"
)

// ResourceRef describes an owned resource for write checks.
type ResourceRef struct {
	Type     ResourceType
	ID       string
	TenantID string
	OwnerID  string
}

// ValidateResourceAccess decides whether profile may modify res.
// Owners may always edit their own resources; leaders and above may edit anything
// inside their effective tenant; root may edit across tenants.
func (as *AuthorizationService) ValidateResourceAccess(profile *domain.Profile, selected string, res ResourceRef) error {
	if err := as.ValidateTenantAccess(profile, selected, res.TenantID); err != nil {
		return err
	}
	if profile.Role == domain.RoleRoot || HasMinimumRole(profile.Role, domain.RoleLeader) {
		return nil
	}
	if res.OwnerID != profile.ID {
		as.logger.Warn("resource access denied",
			slog.String("user_id", profile.ID),
			slog.String("resource_id", res.ID),
			slog.String("resource_type", string(res.Type)),
			slog.String("owner_id", res.OwnerID),
		)
		return fmt.Errorf("%w: you do not own this %s", domain.ErrForbidden, res.Type)
	}
	return nil
}
