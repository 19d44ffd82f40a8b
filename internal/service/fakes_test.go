package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

var (
	tenantA = "11111111-1111-1111-1111-111111111111"
	tenantB = "22222222-2222-2222-2222-222222222222"
)

func quietLogger() *bytes.Buffer { return &bytes.Buffer{} }

func testExecutor() *dataaccess.Executor {
	return dataaccess.NewExecutor(dataaccess.Options{MaxAttempts: 1, Logger: logger.New(quietLogger(), "error")})
}

func testAuthz() *security.AuthorizationService {
	return security.NewAuthorizationService(logger.New(quietLogger(), "error"))
}

func profile(id string, role domain.Role, tenant string) *domain.Profile {
	p := &domain.Profile{ID: id, Email: id + "@example.com", FullName: strings.ToUpper(id), Role: role, IsActive: true}
	if tenant != "" {
		t := tenant
		p.TenantID = &t
	}
	return p
}

func stateFor(p *domain.Profile, selected string) session.State {
	return session.State{
		Authenticated:  true,
		Session:        &domain.Session{UserID: p.ID, Email: p.Email, AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		Profile:        p,
		SelectedTenant: selected,
	}
}

type memCredentials struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Credential
}

func newMemCredentials() *memCredentials {
	return &memCredentials{byEmail: map[string]*domain.Credential{}}
}

func (m *memCredentials) Create(_ context.Context, c *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Email = strings.ToLower(c.Email)
	if _, ok := m.byEmail[c.Email]; ok {
		return fmt.Errorf("credential: %w", domain.ErrAlreadyExists)
	}
	c.CreatedAt = time.Now()
	m.byEmail[c.Email] = c
	return nil
}

func (m *memCredentials) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("credential: %w", domain.ErrNotFound)
}

func (m *memCredentials) GetByUserID(_ context.Context, userID string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byEmail {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("credential: %w", domain.ErrNotFound)
}

func (m *memCredentials) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byEmail {
		if c.UserID == userID {
			c.PasswordHash = hash
			return nil
		}
	}
	return fmt.Errorf("credential: %w", domain.ErrNotFound)
}

// memAccounts creates both rows or neither. profileErr, when set, fails the next profile insert.
type memAccounts struct {
	creds      *memCredentials
	profiles   *memProfiles
	profileErr error
}

func (m *memAccounts) CreateAccount(ctx context.Context, c *domain.Credential, p *domain.Profile) error {
	if err := m.creds.Create(ctx, c); err != nil {
		return err
	}
	err := m.profileErr
	m.profileErr = nil
	if err == nil {
		err = m.profiles.Create(ctx, p)
	}
	if err != nil {
		m.creds.mu.Lock()
		delete(m.creds.byEmail, c.Email)
		m.creds.mu.Unlock()
		return err
	}
	return nil
}

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]*domain.Profile
}

func newMemProfiles(ps ...*domain.Profile) *memProfiles {
	m := &memProfiles{byID: map[string]*domain.Profile{}}
	for _, p := range ps {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("profile: %w", domain.ErrNotFound)
}

func (m *memProfiles) List(_ context.Context, f domain.TenantFilter) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Profile
	for _, p := range m.byID {
		if f.All() || p.Tenant() == *f.TenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProfiles) update(id string, fn func(p *domain.Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("profile: %w", domain.ErrNotFound)
	}
	fn(p)
	return nil
}

func (m *memProfiles) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return m.update(id, func(p *domain.Profile) { p.Role = role })
}

func (m *memProfiles) SetActive(_ context.Context, id string, active bool) error {
	return m.update(id, func(p *domain.Profile) { p.IsActive = active })
}

func (m *memProfiles) AssignTenant(_ context.Context, id string, tenantID *string) error {
	return m.update(id, func(p *domain.Profile) { p.TenantID = tenantID })
}

type memTenants struct {
	byID map[string]*domain.Tenant
}

func newMemTenants(ts ...*domain.Tenant) *memTenants {
	m := &memTenants{byID: map[string]*domain.Tenant{}}
	for _, t := range ts {
		m.byID[t.ID] = t
	}
	return m
}

func (m *memTenants) Create(_ context.Context, t *domain.Tenant) error {
	for _, existing := range m.byID {
		if existing.Slug == t.Slug {
			return fmt.Errorf("tenant: %w", domain.ErrAlreadyExists)
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.byID[t.ID] = t
	return nil
}

func (m *memTenants) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tenant: %w", domain.ErrNotFound)
}

func (m *memTenants) List(context.Context) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for _, t := range m.byID {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTenants) Deactivate(_ context.Context, id string) error {
	t, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("tenant: %w", domain.ErrNotFound)
	}
	t.IsActive = false
	return nil
}

type memObjectives struct {
	mu         sync.Mutex
	objectives map[string]*domain.Objective
	keyResults map[string]*domain.KeyResult
	listCalls  int
}

func newMemObjectives() *memObjectives {
	return &memObjectives{objectives: map[string]*domain.Objective{}, keyResults: map[string]*domain.KeyResult{}}
}

func inFilter(f domain.TenantFilter, tenantID string) bool {
	return f.All() || *f.TenantID == tenantID
}

func (m *memObjectives) Create(_ context.Context, o *domain.Objective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	cp := *o
	m.objectives[o.ID] = &cp
	return nil
}

func (m *memObjectives) GetByID(_ context.Context, f domain.TenantFilter, id string) (*domain.Objective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objectives[id]; ok && inFilter(f, o.TenantID) {
		cp := *o
		return &cp, nil
	}
	return nil, fmt.Errorf("objective: %w", domain.ErrNotFound)
}

func (m *memObjectives) List(_ context.Context, f domain.TenantFilter) ([]*domain.Objective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []*domain.Objective
	for _, o := range m.objectives {
		if inFilter(f, o.TenantID) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memObjectives) Update(_ context.Context, o *domain.Objective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.objectives[o.ID]
	if !ok || existing.TenantID != o.TenantID {
		return fmt.Errorf("objective: %w", domain.ErrNotFound)
	}
	cp := *o
	m.objectives[o.ID] = &cp
	return nil
}

func (m *memObjectives) CreateKeyResult(_ context.Context, kr *domain.KeyResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kr.ID == "" {
		kr.ID = uuid.NewString()
	}
	cp := *kr
	m.keyResults[kr.ID] = &cp
	return nil
}

func (m *memObjectives) GetKeyResult(_ context.Context, f domain.TenantFilter, id string) (*domain.KeyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kr, ok := m.keyResults[id]; ok && inFilter(f, kr.TenantID) {
		cp := *kr
		return &cp, nil
	}
	return nil, fmt.Errorf("key result: %w", domain.ErrNotFound)
}

func (m *memObjectives) UpdateKeyResultValue(_ context.Context, tenantID, id string, value float64) (*domain.KeyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kr, ok := m.keyResults[id]
	if !ok || kr.TenantID != tenantID {
		return nil, fmt.Errorf("key result: %w", domain.ErrNotFound)
	}
	kr.CurrentValue = value
	cp := *kr
	return &cp, nil
}

func (m *memObjectives) ListKeyResults(_ context.Context, f domain.TenantFilter) ([]*domain.KeyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.KeyResult
	for _, kr := range m.keyResults {
		if inFilter(f, kr.TenantID) {
			cp := *kr
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memTeams struct {
	mu      sync.Mutex
	teams   map[string]*domain.Team
	sprints []*domain.Sprint
}

func newMemTeams() *memTeams { return &memTeams{teams: map[string]*domain.Team{}} }

func (m *memTeams) Create(_ context.Context, t *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.teams[t.ID] = t
	return nil
}

func (m *memTeams) List(_ context.Context, f domain.TenantFilter) ([]*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Team
	for _, t := range m.teams {
		if inFilter(f, t.TenantID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTeams) CreateSprint(_ context.Context, s *domain.Sprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[s.TeamID]
	if !ok || t.TenantID != s.TenantID {
		return fmt.Errorf("team: %w", domain.ErrNotFound)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.sprints = append(m.sprints, s)
	return nil
}

func (m *memTeams) ListSprints(_ context.Context, f domain.TenantFilter, teamID string) ([]*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Sprint
	for _, s := range m.sprints {
		if inFilter(f, s.TenantID) && (teamID == "" || s.TeamID == teamID) {
			out = append(out, s)
		}
	}
	return out, nil
}

type memWiki struct {
	docs map[string]*domain.WikiDocument
}

func newMemWiki() *memWiki { return &memWiki{docs: map[string]*domain.WikiDocument{}} }

func (m *memWiki) Create(_ context.Context, d *domain.WikiDocument) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memWiki) GetByID(_ context.Context, f domain.TenantFilter, id string) (*domain.WikiDocument, error) {
	if d, ok := m.docs[id]; ok && inFilter(f, d.TenantID) {
		cp := *d
		return &cp, nil
	}
	return nil, fmt.Errorf("wiki document: %w", domain.ErrNotFound)
}

func (m *memWiki) List(_ context.Context, f domain.TenantFilter) ([]*domain.WikiDocument, error) {
	var out []*domain.WikiDocument
	for _, d := range m.docs {
		if inFilter(f, d.TenantID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memWiki) Update(_ context.Context, d *domain.WikiDocument) error {
	existing, ok := m.docs[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return fmt.Errorf("wiki document: %w", domain.ErrNotFound)
	}
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

type memFeed struct {
	mu            sync.Mutex
	activity      []*domain.ActivityEntry
	notifications []*domain.Notification
}

func (m *memFeed) AppendActivity(_ context.Context, e *domain.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.activity = append(m.activity, e)
	return nil
}

func (m *memFeed) ListActivity(_ context.Context, f domain.TenantFilter, limit int) ([]*domain.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ActivityEntry
	for i := len(m.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if inFilter(f, m.activity[i].TenantID) {
			out = append(out, m.activity[i])
		}
	}
	return out, nil
}

func (m *memFeed) CreateNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memFeed) ListNotifications(_ context.Context, f domain.TenantFilter, userID string) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && inFilter(f, n.TenantID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memFeed) MarkNotificationRead(_ context.Context, tenantID, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID && n.TenantID == tenantID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification: %w", domain.ErrNotFound)
}

func testAudit(feed *memFeed) *audit.Logger {
	return audit.NewLogger(feed, nil, logger.New(quietLogger(), "error"))
}
