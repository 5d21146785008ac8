package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("downstream unavailable")

func TestExecute_StaysClosedOnSuccess(t *testing.T) {
	cb := New("test")

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 10, cb.Counts().TotalSuccesses)
}

func TestExecute_OpensAfterFailureThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func(context.Context) error { return errDown })
		assert.ErrorIs(t, err, errDown)
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.True(t, cb.IsOpen())

	// While open the function is never invoked.
	err := cb.Execute(context.Background(), func(context.Context) error {
		t.Fatal("should not run while open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestExecute_HalfOpenRecovery(t *testing.T) {
	cb := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithTimeout(10*time.Millisecond),
		WithMaxHalfOpenRequests(2),
	)

	require.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }), errDown)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// Two successes in half-open close the circuit.
	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(10*time.Millisecond))

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }))
	time.Sleep(20 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }), errDown)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_HalfOpenLimitsRequests(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Millisecond), WithMaxHalfOpenRequests(1))

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }))
	time.Sleep(5 * time.Millisecond)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The probe slot is taken; a second request is rejected.
	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	require.NoError(t, <-done)
}

func TestExecuteWithFallback(t *testing.T) {
	cb := New("test", WithFailureThreshold(1))
	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }))

	fallbackRan := false
	err := cb.ExecuteWithFallback(context.Background(),
		func(context.Context) error { return nil },
		func(err error) error {
			fallbackRan = true
			assert.ErrorIs(t, err, ErrCircuitOpen)
			return nil
		})

	require.NoError(t, err)
	assert.True(t, fallbackRan)
}

func TestWithIsFailure_IgnoresBenignErrors(t *testing.T) {
	benign := errors.New("not found")
	cb := New("test", WithFailureThreshold(1), WithIsFailure(func(err error) bool {
		return !errors.Is(err, benign)
	}))

	require.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return benign }), benign)
	assert.Equal(t, StateClosed, cb.State())
}

func TestOnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	var seen []transition
	cb := New("test", WithFailureThreshold(1), WithOnStateChange(func(name string, from, to State) {
		assert.Equal(t, "test", name)
		seen = append(seen, transition{from, to})
	}))

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errDown }))
	require.Equal(t, []transition{{StateClosed, StateOpen}}, seen)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestPresetBreakers(t *testing.T) {
	nb := NotificationBreaker(nil)
	assert.Equal(t, "notifications", nb.Name())
	assert.True(t, nb.IsClosed())

	chb := CacheBreaker(nil)
	assert.Equal(t, "cache", chb.Name())
}
