package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("account is deactivated")
	ErrForbidden          = errors.New("forbidden")
	ErrNoTenant           = errors.New("no organization selected")
)

// Identity is the auth provider's view of a user.
type Identity struct {
	ID    string
	Email string
}

// Credential holds the provider-owned secret for an identity.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string // bcrypt, never returned in API
	CreatedAt    time.Time
}

// Profile is the application-level record for a user, keyed by identity id.
// TenantID is nil only for root users or users not yet assigned to an organization.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      Role      `json:"role"`
	TenantID  *string   `json:"tenantId"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tenant returns the profile's tenant id or "" when unassigned.
func (p *Profile) Tenant() string {
	if p == nil || p.TenantID == nil {
		return ""
	}
	return *p.TenantID
}

// Tenant is an isolation boundary for all business data.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantFilter narrows a query to one tenant. A nil TenantID means all tenants
// and is only ever produced for root users without a selected tenant.
type TenantFilter struct {
	TenantID *string
}

// All reports whether the filter spans every tenant.
func (f TenantFilter) All() bool { return f.TenantID == nil }

// ForTenant builds a filter for a single tenant.
func ForTenant(id string) TenantFilter { return TenantFilter{TenantID: &id} }

// CredentialRepository stores login secrets.
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	GetByUserID(ctx context.Context, userID string) (*Credential, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
}

// AccountRepository creates a credential and its profile as one unit: both rows exist or neither does.
type AccountRepository interface {
	CreateAccount(ctx context.Context, cred *Credential, p *Profile) error
}

// ProfileRepository defines data access for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	List(ctx context.Context, f TenantFilter) ([]*Profile, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	SetActive(ctx context.Context, id string, active bool) error
	AssignTenant(ctx context.Context, id string, tenantID *string) error
}

// TenantRepository defines data access for tenants.
type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Deactivate(ctx context.Context, id string) error
}
