package domain

import (
	"context"
	"time"
)

// ObjectiveStatus tracks an objective's lifecycle.
type ObjectiveStatus string

const (
	ObjectiveDraft     ObjectiveStatus = "draft"
	ObjectiveActive    ObjectiveStatus = "active"
	ObjectiveCompleted ObjectiveStatus = "completed"
	ObjectiveCancelled ObjectiveStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s ObjectiveStatus) Valid() bool {
	switch s {
	case ObjectiveDraft, ObjectiveActive, ObjectiveCompleted, ObjectiveCancelled:
		return true
	}
	return false
}

// TenantScoped is implemented by every business entity carrying a tenant reference.
type TenantScoped interface {
	SetTenant(id string)
	Tenant() string
}

// Objective is a qualitative goal for a quarter.
type Objective struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	TeamID      *string         `json:"teamId,omitempty"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Quarter     string          `json:"quarter"`
	Status      ObjectiveStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (o *Objective) SetTenant(id string) { o.TenantID = id }
func (o *Objective) Tenant() string      { return o.TenantID }

// KeyResult is a measurable outcome of an objective.
type KeyResult struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId"`
	ObjectiveID  string    `json:"objectiveId"`
	Title        string    `json:"title"`
	StartValue   float64   `json:"startValue"`
	TargetValue  float64   `json:"targetValue"`
	CurrentValue float64   `json:"currentValue"`
	Unit         string    `json:"unit"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (k *KeyResult) SetTenant(id string) { k.TenantID = id }
func (k *KeyResult) Tenant() string      { return k.TenantID }

// Progress returns completion in percent, clamped to [0, 100].
// Decreasing targets (target below start) are supported.
func (k *KeyResult) Progress() float64 {
	span := k.TargetValue - k.StartValue
	if span == 0 {
		if k.CurrentValue == k.TargetValue {
			return 100
		}
		return 0
	}
	p := (k.CurrentValue - k.StartValue) / span * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Team groups members under a leader.
type Team struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	LeaderID  *string   `json:"leaderId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *Team) SetTenant(id string) { t.TenantID = id }
func (t *Team) Tenant() string      { return t.TenantID }

// Sprint carries the delivery metrics of one iteration of a team.
type Sprint struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	TeamID          string    `json:"teamId"`
	Name            string    `json:"name"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	PlannedPoints   int       `json:"plannedPoints"`
	CompletedPoints int       `json:"completedPoints"`
}

func (s *Sprint) SetTenant(id string) { s.TenantID = id }
func (s *Sprint) Tenant() string      { return s.TenantID }

// Velocity returns completed/planned in percent, 0 when nothing was planned.
func (s *Sprint) Velocity() float64 {
	if s.PlannedPoints <= 0 {
		return 0
	}
	return float64(s.CompletedPoints) / float64(s.PlannedPoints) * 100
}

// WikiDocument is a page of tenant documentation.
type WikiDocument struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"authorId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (w *WikiDocument) SetTenant(id string) { w.TenantID = id }
func (w *WikiDocument) Tenant() string      { return w.TenantID }

// Notification is addressed to a single user.
type Notification struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (n *Notification) SetTenant(id string) { n.TenantID = id }
func (n *Notification) Tenant() string      { return n.TenantID }

// ActivityEntry is one row of the audit log, which doubles as the activity feed.
type ActivityEntry struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (a *ActivityEntry) SetTenant(id string) { a.TenantID = id }
func (a *ActivityEntry) Tenant() string      { return a.TenantID }

// ObjectiveRepository defines data access for objectives and their key results.
type ObjectiveRepository interface {
	Create(ctx context.Context, o *Objective) error
	GetByID(ctx context.Context, f TenantFilter, id string) (*Objective, error)
	List(ctx context.Context, f TenantFilter) ([]*Objective, error)
	Update(ctx context.Context, o *Objective) error
	CreateKeyResult(ctx context.Context, kr *KeyResult) error
	GetKeyResult(ctx context.Context, f TenantFilter, id string) (*KeyResult, error)
	UpdateKeyResultValue(ctx context.Context, tenantID, id string, value float64) (*KeyResult, error)
	ListKeyResults(ctx context.Context, f TenantFilter) ([]*KeyResult, error)
}

// TeamRepository defines data access for teams and sprints.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	List(ctx context.Context, f TenantFilter) ([]*Team, error)
	CreateSprint(ctx context.Context, s *Sprint) error
	ListSprints(ctx context.Context, f TenantFilter, teamID string) ([]*Sprint, error)
}

// WikiRepository defines data access for wiki documents.
type WikiRepository interface {
	Create(ctx context.Context, d *WikiDocument) error
	GetByID(ctx context.Context, f TenantFilter, id string) (*WikiDocument, error)
	List(ctx context.Context, f TenantFilter) ([]*WikiDocument, error)
	Update(ctx context.Context, d *WikiDocument) error
}

// FeedRepository defines data access for the activity log and notifications.
type FeedRepository interface {
	AppendActivity(ctx context.Context, e *ActivityEntry) error
	ListActivity(ctx context.Context, f TenantFilter, limit int) ([]*ActivityEntry, error)
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, f TenantFilter, userID string) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, tenantID, userID, id string) error
}
