package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/lifecycle"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := lifecycle.NewRegistry(lifecycle.RegistryConfig{Clock: clockwork.NewFakeClockAt(start)})

	id, c := r.Create()
	require.NotEmpty(t, id)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, lifecycle.ErrSessionNotFound)

	r.Delete(id)
	assert.Zero(t, r.Len())
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := lifecycle.NewRegistry(lifecycle.RegistryConfig{Clock: clockwork.NewFakeClockAt(start)})

	_, a := r.Create()
	_, b := r.Create()
	a.Receive(batch("only-a"))

	assert.Equal(t, lifecycle.BannerVisible, a.State())
	assert.Equal(t, lifecycle.Idle, b.State())
}

func TestRegistry_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	r := lifecycle.NewRegistry(lifecycle.RegistryConfig{Clock: clock, IdleTTL: time.Hour})

	stale, _ := r.Create()
	fresh, _ := r.Create()

	clock.Advance(50 * time.Minute)
	_, err := r.Get(fresh)
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, r.Sweep())

	_, err = r.Get(stale)
	assert.ErrorIs(t, err, lifecycle.ErrSessionNotFound)
	_, err = r.Get(fresh)
	assert.NoError(t, err)
}

func TestRegistry_SweepCallsOnExpire(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	var expired []string
	r := lifecycle.NewRegistry(lifecycle.RegistryConfig{
		Clock:    clock,
		IdleTTL:  time.Hour,
		OnExpire: func(id string) { expired = append(expired, id) },
	})

	id, _ := r.Create()
	clock.Advance(2 * time.Hour)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, []string{id}, expired)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Run(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	r := lifecycle.NewRegistry(lifecycle.RegistryConfig{Clock: clock, IdleTTL: time.Minute, Logger: zerolog.Nop()})
	r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Minute)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
