package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/security"
)

// AuthProvider performs credential checks against the identity backend.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*domain.Session, error)
	SignOut(ctx context.Context, s *domain.Session) error
}

// ProfileLoader fetches the profile for an authenticated session.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, s *domain.Session) (*domain.Profile, error)
}

// SelectionStore persists a root user's tenant override between runs.
type SelectionStore interface {
	Load(ctx context.Context, userID string) (string, error)
	Save(ctx context.Context, userID, tenantID string) error
	Clear(ctx context.Context, userID string) error
}

// EventKind names a session lifecycle event.
type EventKind string

const (
	EventSignedIn      EventKind = "signed_in"
	EventProfileLoaded EventKind = "profile_loaded"
	EventTenantChanged EventKind = "tenant_changed"
	EventSignedOut     EventKind = "signed_out"
)

// Event is delivered to subscribers after the store's state has changed.
type Event struct {
	Kind  EventKind
	State State
}

// Options configures a Store. Auth and Profiles are required.
type Options struct {
	Auth      AuthProvider
	Profiles  ProfileLoader
	Selection SelectionStore
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Store holds the current session, the cached profile and the root tenant override.
// Mutating operations are serialized; readers never block on network calls.
type Store struct {
	auth      AuthProvider
	profiles  ProfileLoader
	selection SelectionStore
	now       func() time.Time
	logger    *slog.Logger

	// op serializes Login, Signup, Logout, Restore, RefreshProfile and SelectTenant.
	op sync.Mutex

	mu         sync.RWMutex
	session    *domain.Session
	profile    *domain.Profile
	selected   string
	loading    bool
	closed     bool
	generation uint64

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewStore creates a session store.
func NewStore(opts Options) *Store {
	if opts.Selection == nil {
		opts.Selection = NewMemorySelectionStore()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		auth:      opts.Auth,
		profiles:  opts.Profiles,
		selection: opts.Selection,
		now:       opts.Clock,
		logger:    opts.Logger,
		subs:      make(map[int]func(Event)),
	}
}

// Login signs in and loads the profile before returning.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.op.Lock()
	defer s.op.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		ae := classify(err)
		s.logger.Warn("login failed",
			slog.String("email", email),
			slog.String("kind", string(ae.Kind)),
		)
		return ae
	}
	return s.establish(ctx, sess)
}

// Signup creates an account and signs in with it.
func (s *Store) Signup(ctx context.Context, email, password, fullName string) error {
	s.op.Lock()
	defer s.op.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	sess, err := s.auth.SignUp(ctx, email, password, fullName)
	if err != nil {
		ae := classify(err)
		if ae.Kind == KindInvalidCredentials || ae.Kind == KindUnknown {
			ae = &AuthError{Kind: KindSignupRejected, Err: err}
		}
		s.logger.Warn("signup failed",
			slog.String("email", email),
			slog.String("kind", string(ae.Kind)),
		)
		return ae
	}
	return s.establish(ctx, sess)
}

// Restore resumes a previously persisted session.
func (s *Store) Restore(ctx context.Context, sess domain.Session) error {
	s.op.Lock()
	defer s.op.Unlock()
	if s.isClosed() {
		return ErrClosed
	}
	if sess.IsExpired(s.now()) {
		return &AuthError{Kind: KindInvalidCredentials, Err: domain.ErrInvalidCredentials}
	}
	return s.establish(ctx, &sess)
}

// establish stores sess, then fetches and caches the profile. Caller holds s.op.
func (s *Store) establish(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.session = sess
	s.profile = nil
	s.selected = ""
	s.loading = true
	s.mu.Unlock()
	s.publish(EventSignedIn)

	return s.loadProfile(ctx, gen)
}

func (s *Store) loadProfile(ctx context.Context, gen uint64) error {
	sess := s.Session()
	profile, err := s.profiles.LoadProfile(ctx, sess)

	var selected string
	if err == nil && profile.Role == domain.RoleRoot {
		sel, selErr := s.selection.Load(ctx, profile.ID)
		if selErr != nil {
			s.logger.Warn("failed to load tenant selection",
				slog.String("user_id", profile.ID),
				slog.String("error", selErr.Error()),
			)
		} else if id := security.SanitizeTenantID(sel); id != nil {
			selected = *id
		}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to load profile", slog.String("error", err.Error()))
		return &AuthError{Kind: KindProfile, Err: err}
	}
	s.profile = profile
	s.selected = selected
	s.mu.Unlock()

	s.publish(EventProfileLoaded)
	return nil
}

// RefreshProfile refetches the profile for the current session.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.session == nil {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	return s.loadProfile(ctx, gen)
}

// Logout ends the session. Local state is cleared even when the provider call fails.
func (s *Store) Logout(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	sess := s.session
	userID := ""
	if s.profile != nil {
		userID = s.profile.ID
	} else if sess != nil {
		userID = sess.UserID
	}
	s.generation++
	s.session = nil
	s.profile = nil
	s.selected = ""
	s.loading = false
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	if userID != "" {
		if err := s.selection.Clear(ctx, userID); err != nil {
			s.logger.Warn("failed to clear tenant selection",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.publish(EventSignedOut)

	if err := s.auth.SignOut(ctx, sess); err != nil {
		s.logger.Warn("sign out failed", slog.String("error", err.Error()))
		return classify(err)
	}
	return nil
}

// SelectTenant sets the root tenant override. An empty id clears it.
func (s *Store) SelectTenant(ctx context.Context, tenantID string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	profile := s.profile
	gen := s.generation
	s.mu.RUnlock()

	if profile == nil {
		return ErrNotAuthenticated
	}
	if profile.Role != domain.RoleRoot {
		return ErrNotRoot
	}

	var selected string
	if tenantID != "" {
		id := security.SanitizeTenantID(tenantID)
		if id == nil {
			return ErrInvalidTenant
		}
		selected = *id
	}

	var err error
	if selected == "" {
		err = s.selection.Clear(ctx, profile.ID)
	} else {
		err = s.selection.Save(ctx, profile.ID, selected)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	// Only Close can move the generation while op is held.
	if gen != s.generation {
		s.mu.Unlock()
		return ErrClosed
	}
	s.selected = selected
	s.mu.Unlock()

	s.publish(EventTenantChanged)
	return nil
}

// SelectedTenant returns the root tenant override, or "".
func (s *Store) SelectedTenant() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IsAuthenticated checks token presence and expiry on every call.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.session.IsExpired(s.now())
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Profile() *domain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *Store) Session() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Snapshot returns a consistent copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	return State{
		Loading:        s.loading,
		Authenticated:  !s.session.IsExpired(s.now()),
		Session:        s.session,
		Profile:        s.profile,
		SelectedTenant: s.selected,
	}
}

// Subscribe registers fn for lifecycle events and returns a function that removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Close tears the store down. Results of in-flight operations are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation++
	s.mu.Unlock()

	s.subMu.Lock()
	s.subs = make(map[int]func(Event))
	s.subMu.Unlock()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) publish(kind EventKind) {
	ev := Event{Kind: kind, State: s.Snapshot()}

	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
