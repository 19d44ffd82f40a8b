package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// WikiInput is the writable part of a wiki document.
type WikiInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type WikiService struct {
	docs   domain.WikiRepository
	exec   *dataaccess.Executor
	authz  *security.AuthorizationService
	audit  *audit.Logger
	logger *slog.Logger
}

func NewWikiService(
	docs domain.WikiRepository,
	exec *dataaccess.Executor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *WikiService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WikiService{docs: docs, exec: exec, authz: authz, audit: auditLog, logger: logger}
}

func (s *WikiService) List(ctx context.Context, state session.State) ([]*domain.WikiDocument, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "wiki", s.docs.List)
}

func (s *WikiService) Get(ctx context.Context, state session.State, id string) (*domain.WikiDocument, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "wiki:"+id,
		func(ctx context.Context, f domain.TenantFilter) (*domain.WikiDocument, error) {
			return s.docs.GetByID(ctx, f, id)
		})
}

func (s *WikiService) Create(ctx context.Context, state session.State, in WikiInput) (*domain.WikiDocument, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermEditWiki); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title is required")
	}

	d := &domain.WikiDocument{Title: in.Title, Body: in.Body, AuthorID: p.ID}
	if err := dataaccess.Mutate(ctx, s.exec, dataaccess.ScopeFor(state), d, s.docs.Create); err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, d.TenantID, p.ID, "wiki.created", "wiki_document", d.ID, d.Title)
	return d, nil
}

// Update edits a document. Authors may edit their own; leaders and above any in the tenant.
func (s *WikiService) Update(ctx context.Context, state session.State, id string, in WikiInput) (*domain.WikiDocument, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title is required")
	}

	var doc *domain.WikiDocument
	err = dataaccess.Exec(ctx, s.exec, dataaccess.ScopeFor(state), func(ctx context.Context, tenantID string) error {
		d, err := s.docs.GetByID(ctx, domain.ForTenant(tenantID), id)
		if err != nil {
			return err
		}
		ref := security.ResourceRef{Type: security.ResourceWikiDoc, ID: d.ID, TenantID: d.TenantID, OwnerID: d.AuthorID}
		if err := s.authz.ValidateResourceAccess(p, state.SelectedTenant, ref); err != nil {
			return err
		}
		d.Title, d.Body = in.Title, in.Body
		if err := s.docs.Update(ctx, d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, doc.TenantID, p.ID, "wiki.updated", "wiki_document", doc.ID, doc.Title)
	return doc, nil
}
