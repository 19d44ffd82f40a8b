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

var quarterPattern = regexp.MustCompile(`^\d{4}-Q[1-4]$`)

// ObjectiveInput is the writable part of an objective.
type ObjectiveInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Quarter     string                 `json:"quarter"`
	Status      domain.ObjectiveStatus `json:"status"`
	TeamID      *string                `json:"teamId,omitempty"`
}

func (in *ObjectiveInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Quarter = strings.ToUpper(strings.TrimSpace(in.Quarter))
	if in.Status == "" {
		in.Status = domain.ObjectiveDraft
	}
	if in.Title == "" {
		return invalid("title is required")
	}
	if !quarterPattern.MatchString(in.Quarter) {
		return invalid("quarter must look like 2026-Q1")
	}
	if !in.Status.Valid() {
		return invalid("unknown status %q", in.Status)
	}
	return nil
}

// KeyResultInput describes a new key result.
type KeyResultInput struct {
	Title        string  `json:"title"`
	StartValue   float64 `json:"startValue"`
	TargetValue  float64 `json:"targetValue"`
	CurrentValue float64 `json:"currentValue"`
	Unit         string  `json:"unit"`
}

// ObjectiveDetail is an objective with its key results and overall progress.
type ObjectiveDetail struct {
	*domain.Objective
	KeyResults []*domain.KeyResult `json:"keyResults"`
	Progress   float64             `json:"progress"`
}

// Notifier sends a notification to a user of a tenant.
type Notifier interface {
	Notify(ctx context.Context, tenantID, userID, message string) error
}

// OKRService manages objectives and key results.
type OKRService struct {
	objectives domain.ObjectiveRepository
	exec       *dataaccess.Executor
	authz      *security.AuthorizationService
	audit      *audit.Logger
	notifier   Notifier
	logger     *slog.Logger
}

func NewOKRService(
	objectives domain.ObjectiveRepository,
	exec *dataaccess.Executor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	notifier Notifier,
	logger *slog.Logger,
) *OKRService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OKRService{
		objectives: objectives,
		exec:       exec,
		authz:      authz,
		audit:      auditLog,
		notifier:   notifier,
		logger:     logger,
	}
}

// ListObjectives lists the objectives of the caller's scope.
func (s *OKRService) ListObjectives(ctx context.Context, state session.State) ([]*domain.Objective, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "objectives", s.objectives.List)
}

// GetObjective returns one objective of the caller's scope with its key results.
func (s *OKRService) GetObjective(ctx context.Context, state session.State, id string) (*ObjectiveDetail, bool, error) {
	if _, err := actor(state); err != nil {
		return nil, false, err
	}
	return dataaccess.Fetch(ctx, s.exec, dataaccess.ScopeFor(state), "objective:"+id,
		func(ctx context.Context, f domain.TenantFilter) (*ObjectiveDetail, error) {
			o, err := s.objectives.GetByID(ctx, f, id)
			if err != nil {
				return nil, err
			}
			krs, err := s.objectives.ListKeyResults(ctx, domain.ForTenant(o.TenantID))
			if err != nil {
				return nil, err
			}
			d := &ObjectiveDetail{Objective: o, KeyResults: []*domain.KeyResult{}}
			var sum float64
			for _, kr := range krs {
				if kr.ObjectiveID == o.ID {
					d.KeyResults = append(d.KeyResults, kr)
					sum += kr.Progress()
				}
			}
			if n := len(d.KeyResults); n > 0 {
				d.Progress = sum / float64(n)
			}
			return d, nil
		})
}

// CreateObjective creates an objective owned by the caller in the caller's tenant.
func (s *OKRService) CreateObjective(ctx context.Context, state session.State, in ObjectiveInput) (*domain.Objective, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidatePermission(p.Role, security.PermEditOKRs); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	o := &domain.Objective{
		OwnerID:     p.ID,
		TeamID:      in.TeamID,
		Title:       in.Title,
		Description: in.Description,
		Quarter:     in.Quarter,
		Status:      in.Status,
	}
	err = dataaccess.Mutate(ctx, s.exec, dataaccess.ScopeFor(state), o, s.objectives.Create)
	if err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, o.TenantID, p.ID, "objective.created", "objective", o.ID, o.Title)
	return o, nil
}

// UpdateObjective replaces an objective's writable fields.
func (s *OKRService) UpdateObjective(ctx context.Context, state session.State, id string, in ObjectiveInput) (*domain.Objective, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var updated *domain.Objective
	err = dataaccess.Exec(ctx, s.exec, dataaccess.ScopeFor(state), func(ctx context.Context, tenantID string) error {
		o, err := s.objectives.GetByID(ctx, domain.ForTenant(tenantID), id)
		if err != nil {
			return err
		}
		ref := security.ResourceRef{Type: security.ResourceObjective, ID: o.ID, TenantID: o.TenantID, OwnerID: o.OwnerID}
		if err := s.authz.ValidateResourceAccess(p, state.SelectedTenant, ref); err != nil {
			return err
		}
		o.Title, o.Description, o.Quarter, o.Status, o.TeamID = in.Title, in.Description, in.Quarter, in.Status, in.TeamID
		if err := s.objectives.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, updated.TenantID, p.ID, "objective.updated", "objective", updated.ID, string(updated.Status))
	return updated, nil
}

// AddKeyResult attaches a key result to an objective of the caller's tenant.
func (s *OKRService) AddKeyResult(ctx context.Context, state session.State, objectiveID string, in KeyResultInput) (*domain.KeyResult, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("title is required")
	}
	if in.CurrentValue == 0 {
		in.CurrentValue = in.StartValue
	}

	kr := &domain.KeyResult{
		ObjectiveID:  objectiveID,
		Title:        in.Title,
		StartValue:   in.StartValue,
		TargetValue:  in.TargetValue,
		CurrentValue: in.CurrentValue,
		Unit:         strings.TrimSpace(in.Unit),
	}
	err = dataaccess.Mutate(ctx, s.exec, dataaccess.ScopeFor(state), kr, func(ctx context.Context, kr *domain.KeyResult) error {
		o, err := s.objectives.GetByID(ctx, domain.ForTenant(kr.TenantID), kr.ObjectiveID)
		if err != nil {
			return err
		}
		ref := security.ResourceRef{Type: security.ResourceObjective, ID: o.ID, TenantID: o.TenantID, OwnerID: o.OwnerID}
		if err := s.authz.ValidateResourceAccess(p, state.SelectedTenant, ref); err != nil {
			return err
		}
		return s.objectives.CreateKeyResult(ctx, kr)
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogAction(ctx, kr.TenantID, p.ID, "key_result.created", "key_result", kr.ID, kr.Title)
	return kr, nil
}

// UpdateProgress records a new current value on a key result. Members may update key
// results of objectives they own; leaders and above any in their tenant.
func (s *OKRService) UpdateProgress(ctx context.Context, state session.State, keyResultID string, value float64) (*domain.KeyResult, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}

	var (
		kr    *domain.KeyResult
		owner string
	)
	err = dataaccess.Exec(ctx, s.exec, dataaccess.ScopeFor(state), func(ctx context.Context, tenantID string) error {
		f := domain.ForTenant(tenantID)
		current, err := s.objectives.GetKeyResult(ctx, f, keyResultID)
		if err != nil {
			return err
		}
		o, err := s.objectives.GetByID(ctx, f, current.ObjectiveID)
		if err != nil {
			return err
		}
		ref := security.ResourceRef{Type: security.ResourceKeyResult, ID: current.ID, TenantID: current.TenantID, OwnerID: o.OwnerID}
		if err := s.authz.ValidateResourceAccess(p, state.SelectedTenant, ref); err != nil {
			return err
		}
		kr, err = s.objectives.UpdateKeyResultValue(ctx, tenantID, keyResultID, value)
		owner = o.OwnerID
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAction(ctx, kr.TenantID, p.ID, "key_result.progressed", "key_result", kr.ID,
		fmt.Sprintf("%.1f%%", kr.Progress()))
	if owner != p.ID && s.notifier != nil {
		msg := fmt.Sprintf("%s updated %q to %g%s", p.FullName, kr.Title, kr.CurrentValue, unitSuffix(kr.Unit))
		if err := s.notifier.Notify(ctx, kr.TenantID, owner, msg); err != nil {
			s.logger.Warn("failed to notify objective owner",
				slog.String("key_result_id", kr.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return kr, nil
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
