package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 2 failures
	cb := NewCircuitBreaker("synth", WithMaxFailures(2))
	fail := errors.New("down")

	// When: two calls fail
	_ = cb.Execute(func() error { return fail })
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(func() error { return fail })

	// Then: the circuit is open and calls are rejected without running
	assert.Equal(t, StateOpen, cb.State())
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("synth",
		WithMaxFailures(1),
		WithResetTimeout(time.Second),
		withClock(clock.Now),
	)

	_ = cb.Execute(func() error { return errors.New("down") })
	require.Equal(t, StateOpen, cb.State())

	// When: the reset timeout passes
	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	// Then: a failing probe reopens immediately
	_ = cb.Execute(func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.State())

	// And: a successful probe closes the circuit
	clock.Advance(2 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitCall_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("synth")

	got, err := CircuitCall(cb, func() (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "synth", cb.Name())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
