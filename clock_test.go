package crossing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepContext_SlicesTheWait(t *testing.T) {
	clock := newFakeClock()

	require.NoError(t, sleepContext(context.Background(), clock, 10*time.Millisecond, 3*time.Millisecond))
	assert.Equal(t, []time.Duration{
		3 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond, time.Millisecond,
	}, clock.sleeps)
}

func TestSleepContext_ReturnsOnceCancelled(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.onSleep = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	err := sleepContext(ctx, clock, time.Hour, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, clock.sleeps, 2)
}
