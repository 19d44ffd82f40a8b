// Package dataaccess is the tenant-scoped query contract every data read and write
// goes through: resolve the effective tenant, skip queries that have none, filter
// every query and stamp every payload with it.
package dataaccess

import (
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// Scope is the tenant a query runs against.
type Scope struct {
	TenantID   *string
	AllTenants bool
}

// ScopeFor resolves the scope of a session snapshot.
func ScopeFor(state session.State) Scope {
	return Scope{
		TenantID:   state.TenantID(),
		AllTenants: state.AllTenants(),
	}
}

// ForTenant is a scope pinned to one tenant.
func ForTenant(id string) Scope {
	return Scope{TenantID: &id}
}

// Resolvable reports whether a tenant-scoped query may run.
func (s Scope) Resolvable() bool {
	return s.TenantID != nil || s.AllTenants
}

// Tenant returns the concrete tenant id or "".
func (s Scope) Tenant() string {
	if s.TenantID == nil {
		return ""
	}
	return *s.TenantID
}

// Filter converts the scope to a repository filter.
func (s Scope) Filter() domain.TenantFilter {
	if s.TenantID != nil {
		return domain.ForTenant(*s.TenantID)
	}
	return domain.TenantFilter{}
}

func (s Scope) spanTenant() string {
	if s.TenantID != nil {
		return *s.TenantID
	}
	return "all"
}

func (s Scope) cachePrefix() string {
	if s.TenantID != nil {
		return "tenant:" + *s.TenantID + "|"
	}
	return "all|"
}
