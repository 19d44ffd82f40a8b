package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestTripsAfterThreshold(t *testing.T) {
	cb := New(3, 1, time.Minute)
	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := New(1, 2, 30*time.Second).WithClock(func() time.Time { return now })

	var transitions []string
	cb.OnStateChange(func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) })

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	now = now.Add(30 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := New(1, 1, time.Second).WithClock(func() time.Time { return now })
	cb.RecordFailure()
	now = now.Add(time.Second)
	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestDo(t *testing.T) {
	cb := New(1, 1, time.Hour)
	notCounted := errors.New("client error")

	err := cb.Do(func() error { return notCounted }, func(err error) bool { return err == errBoom })
	assert.ErrorIs(t, err, notCounted)
	assert.Equal(t, StateClosed, cb.State())

	err = cb.Do(func() error { return errBoom }, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err = cb.Do(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}
