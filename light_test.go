package crossing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTiming = Timing{Green: 5 * time.Second, Yellow: time.Second, Red: 6 * time.Second}

func TestLightCycle_PhaseSequenceAndDurations(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	rec := &changeRecorder{}
	lane := NewLane(1, WithLaneClock(clock), WithLaneObservers(rec))

	light, err := NewLightCycle(lane, testTiming, WithLightClock(clock))
	require.NoError(t, err)

	// sleeps: offset, then green/yellow/red per cycle; stop midway through cycle two
	clock.onSleep = func(n int) {
		if n == 5 {
			light.Stop()
		}
	}
	require.NoError(t, light.Run(context.Background()))
	assert.Equal(t, int64(2), light.Cycles())

	phases := rec.ofKind(ChangePhase)
	want := []Phase{Red, Green, Yellow, Red, Green, Yellow, Red}
	require.Len(t, phases, len(want))

	offsets := []time.Duration{0, 0, 5 * time.Second, 6 * time.Second, 12 * time.Second, 17 * time.Second, 18 * time.Second}
	for i, change := range phases {
		assert.Equal(t, want[i], change.Snapshot.Phase, "phase %d", i)
		assert.Equal(t, offsets[i], change.Snapshot.PhaseChangedAt.Sub(start), "phase %d", i)
	}
	assert.Equal(t, Red, lane.Phase())
}

func TestLightCycle_RunsAgainAfterStop(t *testing.T) {
	clock := newFakeClock()
	rec := &changeRecorder{}
	lane := NewLane(1, WithLaneClock(clock), WithLaneObservers(rec))

	light, err := NewLightCycle(lane, testTiming, WithLightClock(clock))
	require.NoError(t, err)

	// each run sleeps for its offset, then green, yellow and red
	clock.onSleep = func(n int) {
		if n%4 == 0 {
			light.Stop()
		}
	}
	require.NoError(t, light.Run(context.Background()))
	assert.Equal(t, int64(1), light.Cycles())

	require.NoError(t, light.Run(context.Background()))
	assert.Equal(t, int64(2), light.Cycles())

	var phases []Phase
	for _, change := range rec.ofKind(ChangePhase) {
		phases = append(phases, change.Snapshot.Phase)
	}
	assert.Equal(t, []Phase{Red, Green, Yellow, Red, Red, Green, Yellow, Red}, phases)
}

func TestLightCycle_OffsetDelaysFirstGreen(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	rec := &changeRecorder{}
	lane := NewLane(2, WithLaneClock(clock), WithLaneObservers(rec))

	light, err := NewLightCycle(lane, testTiming, WithLightClock(clock), WithOffset(6*time.Second))
	require.NoError(t, err)
	clock.onSleep = func(n int) {
		if n == 2 {
			light.Stop()
		}
	}

	require.NoError(t, light.Run(context.Background()))

	phases := rec.ofKind(ChangePhase)
	require.GreaterOrEqual(t, len(phases), 2)
	assert.Equal(t, Red, phases[0].Snapshot.Phase)
	assert.Equal(t, Green, phases[1].Snapshot.Phase)
	assert.Equal(t, 6*time.Second, phases[1].Snapshot.PhaseChangedAt.Sub(start))
}

func TestLightCycle_ContextCheckedAtCycleBoundary(t *testing.T) {
	clock := newFakeClock()
	lane := NewLane(1, WithLaneClock(clock))
	light, err := NewLightCycle(lane, testTiming, WithLightClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	clock.onSleep = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	require.NoError(t, light.Run(ctx))
	assert.Equal(t, int64(1), light.Cycles())
	assert.Equal(t, Red, light.Phase())
}

func TestLightCycle_RejectsBadTiming(t *testing.T) {
	lane := NewLane(1)

	_, err := NewLightCycle(lane, Timing{Green: time.Second, Yellow: 0, Red: time.Second})
	assert.Error(t, err)

	_, err = NewLightCycle(lane, testTiming, WithOffset(-time.Second))
	assert.Error(t, err)
}

func TestLightCycle_RunTwice(t *testing.T) {
	block := make(chan struct{})
	clock := &blockingClock{release: block}
	lane := NewLane(1)
	light, err := NewLightCycle(lane, testTiming, WithLightClock(clock))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- light.Run(context.Background()) }()

	require.Eventually(t, func() bool { return lane.Version() > 0 }, time.Second, time.Millisecond)
	err = light.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	light.Stop()
	close(block)
	require.NoError(t, <-done)
}

func TestTiming(t *testing.T) {
	assert.Equal(t, 12*time.Second, testTiming.Cycle())
	assert.Equal(t, time.Second, testTiming.Duration(Yellow))
	assert.Equal(t, Yellow, Green.Next())
	assert.Equal(t, Red, Yellow.Next())
	assert.Equal(t, Green, Red.Next())
	assert.True(t, Yellow.AllowsEntry())
	assert.False(t, Red.AllowsEntry())
}

// blockingClock parks every Sleep until release is closed.
type blockingClock struct {
	release chan struct{}
}

func (c *blockingClock) Now() time.Time { return time.Now() }

func (c *blockingClock) Sleep(time.Duration) { <-c.release }
