package crossing

import (
	"sync"
	"time"
)

// fakeClock advances only when Sleep is called. It suits tests where a
// single goroutine owns the timeline.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// changeRecorder keeps every lane change it sees.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) OnLaneChange(change Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *changeRecorder) ofKind(kind ChangeKind) []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Change
	for _, c := range r.changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Lanes = 2
	cfg.Cars = 0
	cfg.CarsPerLane = 3
	cfg.Light = LightConfig{
		Green:  30 * time.Millisecond,
		Yellow: 10 * time.Millisecond,
		Red:    40 * time.Millisecond,
	}
	cfg.CrossingTime = 20 * time.Millisecond
	cfg.Tick = 2 * time.Millisecond
	cfg.WaitWarning = 0
	return cfg
}
