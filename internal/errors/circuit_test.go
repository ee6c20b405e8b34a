package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 2 failures
	cb := NewCircuitBreaker("writer", WithMaxFailures(2), WithResetTimeout(time.Hour))
	fail := func() (int, error) { return 0, errors.New("locked") }

	// When: two calls fail
	_, _ = Execute(cb, fail)
	_, _ = Execute(cb, fail)

	// Then: the circuit is open and calls are rejected without running fn
	assert.Equal(t, StateOpen, cb.State())
	called := false
	_, err := Execute(cb, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	// Given: an open breaker with a controllable clock
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker("writer", WithMaxFailures(1), WithResetTimeout(time.Second))
	cb.now = func() time.Time { return now }
	_, _ = Execute(cb, func() (int, error) { return 0, errors.New("x") })
	require.Equal(t, StateOpen, cb.State())

	// When: the reset timeout elapses
	now = now.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Then: a failing probe reopens it
	_, _ = Execute(cb, func() (int, error) { return 0, errors.New("x") })
	assert.Equal(t, StateOpen, cb.State())

	// And: a successful probe closes it
	now = now.Add(2 * time.Second)
	v, err := Execute(cb, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Failures())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
