package service

import (
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/domain"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrSignupDisabled = fmt.Errorf("%w: signup is disabled", domain.ErrForbidden)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// actor returns the caller's profile, or ErrUnauthenticated for signed-out state.
func actor(state session.State) (*domain.Profile, error) {
	if !state.Authenticated || state.Profile == nil {
		return nil, dataaccess.ErrUnauthenticated
	}
	return state.Profile, nil
}

func requireRoot(state session.State) (*domain.Profile, error) {
	p, err := actor(state)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RoleRoot {
		return nil, fmt.Errorf("%w: root only", domain.ErrForbidden)
	}
	return p, nil
}
