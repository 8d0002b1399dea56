package crossing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/anggasct/crossing/pkg/core"
)

const eventNext = "next"

// Timing holds how long each phase is shown.
type Timing struct {
	Green  time.Duration
	Yellow time.Duration
	Red    time.Duration
}

// Duration returns how long phase p is held.
func (t Timing) Duration(p Phase) time.Duration {
	switch p {
	case Green:
		return t.Green
	case Yellow:
		return t.Yellow
	default:
		return t.Red
	}
}

// Cycle is the length of one GREEN, YELLOW, RED round.
func (t Timing) Cycle() time.Duration {
	return t.Green + t.Yellow + t.Red
}

// LightOption configures a LightCycle
type LightOption func(*LightCycle)

func WithLightClock(clock Clock) LightOption {
	return func(c *LightCycle) { c.clock = clock }
}

// WithOffset delays the first GREEN, keeping the light RED meanwhile.
func WithOffset(d time.Duration) LightOption {
	return func(c *LightCycle) { c.offset = d }
}

func WithLightLogger(logger *slog.Logger) LightOption {
	return func(c *LightCycle) { c.logger = logger }
}

func WithLightObservers(observers ...core.Observer) LightOption {
	return func(c *LightCycle) { c.observers = append(c.observers, observers...) }
}

// LightCycle drives one lane's phase through a RED, GREEN, YELLOW state
// machine whose entry actions publish the phase to the lane.
type LightCycle struct {
	lane      *Lane
	timing    Timing
	offset    time.Duration
	clock     Clock
	logger    *slog.Logger
	observers []core.Observer

	machine *core.StateMachine
	running atomic.Bool
	stop    atomic.Bool
	cycles  atomic.Int64
}

func NewLightCycle(lane *Lane, timing Timing, opts ...LightOption) (*LightCycle, error) {
	for _, p := range PhaseCycle {
		if timing.Duration(p) <= 0 {
			return nil, core.NewConfigurationError("LightCycle", fmt.Sprintf("%s duration must be positive", p))
		}
	}

	c := &LightCycle{
		lane:   lane,
		timing: timing,
		clock:  RealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.offset < 0 {
		return nil, core.NewConfigurationError("LightCycle", "offset must not be negative")
	}

	def, err := lightLifecycle(lane)
	if err != nil {
		return nil, err
	}
	c.machine = def.CreateInstance(fmt.Sprintf("light-%d", lane.ID()))
	for _, o := range c.observers {
		c.machine.AddObserver(o)
	}
	return c, nil
}

func lightLifecycle(lane *Lane) (core.MachineDefinition, error) {
	show := func(p Phase) core.ActionFunc {
		return func(core.Context) error {
			if lane != nil {
				lane.SetPhase(p)
			}
			return nil
		}
	}
	return core.NewMachine().
		State(string(Red)).Initial().OnEntry(show(Red)).
		To(string(Green)).On(eventNext).
		State(string(Green)).OnEntry(show(Green)).
		To(string(Yellow)).On(eventNext).
		State(string(Yellow)).OnEntry(show(Yellow)).
		To(string(Red)).On(eventNext).
		Build()
}

// LightLifecycle returns the phase machine shape without a lane attached.
func LightLifecycle() core.MachineDefinition {
	def, err := lightLifecycle(nil)
	if err != nil {
		panic(err)
	}
	return def
}

// Lane returns the lane this light governs.
func (c *LightCycle) Lane() *Lane {
	return c.lane
}

// Phase returns the phase the light machine is in.
func (c *LightCycle) Phase() Phase {
	return Phase(c.machine.CurrentState())
}

// Cycles returns the number of completed GREEN, YELLOW, RED rounds.
func (c *LightCycle) Cycles() int64 {
	return c.cycles.Load()
}

// Stop asks the current Run to return at the next cycle boundary. Each Run
// starts with the request cleared.
func (c *LightCycle) Stop() {
	c.stop.Store(true)
}

// Run cycles the light until Stop is called or ctx is done. Both are only
// checked between full cycles, so a started cycle always completes.
func (c *LightCycle) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("light %s: %w", c.lane.Name(), ErrAlreadyRunning)
	}
	defer c.running.Store(false)
	c.stop.Store(false)

	if err := c.machine.Start(); err != nil {
		return fmt.Errorf("light %s: %w", c.lane.Name(), err)
	}
	defer c.machine.Stop()

	c.logger.Debug("light started", "lane", c.lane.ID(), "offset", c.offset)
	c.clock.Sleep(c.offset)

	for !c.stop.Load() && ctx.Err() == nil {
		for _, phase := range PhaseCycle {
			result := c.machine.HandleEvent(eventNext, phase)
			if !result.Success() {
				return newInvariantError(c.lane.ID(), 0, "light refused to advance", result.Error)
			}
			if got := Phase(result.CurrentState); got != phase {
				return newInvariantError(c.lane.ID(), 0, fmt.Sprintf("light moved to %s, expected %s", got, phase), nil)
			}
			c.clock.Sleep(c.timing.Duration(phase))
		}
		c.cycles.Add(1)
	}

	c.logger.Debug("light stopped", "lane", c.lane.ID(), "cycles", c.cycles.Load())
	return nil
}
