package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(&Config{Name: "test", MaxFailures: 3, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	ctx := context.Background()
	boom := errors.New("rpc down")

	for i := 0; i < 3; i++ {
		err := cb.Execute(ctx, func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitSuccessResetsFailureStreak(t *testing.T) {
	cb := New(&Config{Name: "test", MaxFailures: 3, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	ctx := context.Background()
	boom := errors.New("rpc down")

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return boom })
	}
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return boom })
	}

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitHalfOpenRecovery(t *testing.T) {
	cb := New(&Config{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("rpc down") })
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	cb := New(&Config{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond, HalfOpenMaxCalls: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errors.New("rpc down") })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(ctx, func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestRegistrySharesBreakerPerChain(t *testing.T) {
	r := NewRegistry()

	mainnet := r.ForChain(types.ChainID("1"))
	polygon := r.ForChain(types.ChainID("137"))
	assert.NotSame(t, mainnet, polygon)
	assert.Same(t, mainnet, r.ForChain(types.ChainID("1")))

	mainnet.Reset()
	states := r.States()
	assert.Equal(t, StateClosed, states[types.ChainID("1")])
	assert.Len(t, states, 2)
}
