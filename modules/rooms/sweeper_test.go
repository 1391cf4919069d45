package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RemovesExpiredLeases(t *testing.T) {
	clock := newFakeClock()
	coord := NewCoordinator(WithClock(clock.Now), WithPasswordTTL(time.Minute))

	_, err := coord.Join("r1", "a", "alice", "pw")
	require.NoError(t, err)
	coord.Leave("a")
	require.Equal(t, 1, coord.Stats().Leases)

	clock.Advance(2 * time.Minute)

	s := NewSweeper(coord, 5*time.Millisecond, &mockLogger{})
	s.Start()
	defer func() {
		_ = s.Stop(context.Background())
	}()

	assert.Eventually(t, func() bool {
		return coord.Stats().Leases == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	s := NewSweeper(NewCoordinator(), time.Hour, &mockLogger{})
	s.Start()

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestSweeper_StopHonoursContext(t *testing.T) {
	s := NewSweeper(NewCoordinator(), time.Hour, &mockLogger{})
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{}) // never closed: no loop running

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.Canceled)
}
