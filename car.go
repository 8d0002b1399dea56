package crossing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/anggasct/crossing/pkg/core"
)

// CarState is a step in a car's lifecycle. Steps only move forward.
type CarState string

const (
	Arrived  CarState = "arrived"
	Waiting  CarState = "waiting"
	Crossing CarState = "crossing"
	Exited   CarState = "exited"
)

const (
	eventQueue = "queue"
	eventEnter = "enter"
	eventLeave = "leave"
)

// Context keys the lifecycle stamps as each step is entered.
const (
	keyArrivedAt = "arrived_at"
	keyEnteredAt = "entered_at"
	keyExitedAt  = "exited_at"
)

// carEvent is the payload of every lifecycle event: when the lane applied it
// and which phase the lane was showing at that moment.
type carEvent struct {
	at    time.Time
	phase Phase
}

var carLifecycle = mustBuild(
	core.NewMachine().
		State(string(Arrived)).Initial().
		To(string(Waiting)).On(eventQueue).Do(stamp(keyArrivedAt)).
		State(string(Waiting)).
		To(string(Crossing)).On(eventEnter).When(entryAllowed).Do(stamp(keyEnteredAt)).
		State(string(Crossing)).
		To(string(Exited)).On(eventLeave).Do(stamp(keyExitedAt)).
		State(string(Exited)).Final(),
)

func entryAllowed(ctx core.Context) bool {
	ev, ok := ctx.GetEventData().(carEvent)
	return ok && ev.phase.AllowsEntry()
}

func stamp(key string) core.ActionFunc {
	return func(ctx core.Context) error {
		ev, ok := ctx.GetEventData().(carEvent)
		if !ok {
			return fmt.Errorf("%s: event carries no timestamp", ctx.GetEventName())
		}
		ctx.Set(key, ev.at)
		return nil
	}
}

func mustBuild(b interface {
	Build() (core.MachineDefinition, error)
}) core.MachineDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// CarLifecycle returns the machine definition every car runs.
func CarLifecycle() core.MachineDefinition {
	return carLifecycle
}

// Car is one vehicle bound to a single lane for its whole life. The times it
// arrived, entered and exited live in its machine context.
type Car struct {
	ID     int
	Key    string
	LaneID int
	// Speed is the fraction of the lane covered per second while crossing.
	Speed float64

	machine *core.StateMachine
}

// NewCar creates a car in the arrived state. crossingTime is how long it
// takes to cover the whole lane.
func NewCar(id, laneID int, crossingTime time.Duration, observers ...core.Observer) (*Car, error) {
	if crossingTime <= 0 {
		return nil, core.NewConfigurationError("Car", "crossing time must be positive")
	}

	car := &Car{
		ID:     id,
		Key:    uuid.New().String(),
		LaneID: laneID,
		Speed:  1 / crossingTime.Seconds(),
	}
	car.machine = carLifecycle.CreateInstance(fmt.Sprintf("car-%d", id))
	for _, o := range observers {
		car.machine.AddObserver(o)
	}
	if err := car.machine.Start(); err != nil {
		return nil, err
	}
	return car, nil
}

// State returns the car's current lifecycle step.
func (c *Car) State() CarState {
	return CarState(c.machine.CurrentState())
}

// History returns every lifecycle step the car has entered, oldest first.
func (c *Car) History() []CarState {
	history := c.machine.History()
	out := make([]CarState, len(history))
	for i, s := range history {
		out[i] = CarState(s)
	}
	return out
}

func (c *Car) String() string {
	return fmt.Sprintf("car %d (lane %d)", c.ID, c.LaneID)
}

// Done reports whether the car has left its lane for good.
func (c *Car) Done() bool {
	return c.machine.IsFinished()
}

// ArrivedAt returns when the car joined its lane, or the zero time.
func (c *Car) ArrivedAt() time.Time {
	return c.stamped(keyArrivedAt)
}

// EnteredAt returns when the car began crossing, or the zero time.
func (c *Car) EnteredAt() time.Time {
	return c.stamped(keyEnteredAt)
}

// ExitedAt returns when the car left the lane, or the zero time.
func (c *Car) ExitedAt() time.Time {
	return c.stamped(keyExitedAt)
}

func (c *Car) stamped(key string) time.Time {
	v, _ := c.machine.Context().Get(key)
	at, _ := v.(time.Time)
	return at
}

// advance fires a lifecycle event stamped with at. The enter event is
// refused unless phase admits entry. A refused event means something tried
// to move the car backward, skip a step or enter on RED.
func (c *Car) advance(event string, at time.Time, phase Phase) error {
	result := c.machine.HandleEvent(event, carEvent{at: at, phase: phase})
	if !result.Success() {
		return newInvariantError(c.LaneID, c.ID,
			fmt.Sprintf("car cannot %s from %s", event, result.PreviousState), result.Error)
	}
	return nil
}

// positionAt derives the car's place along the lane from its entry time, so
// every car in one snapshot is measured at the same instant.
func (c *Car) positionAt(state CarState, now time.Time) float64 {
	switch state {
	case Crossing:
		p := c.Speed * now.Sub(c.EnteredAt()).Seconds()
		if p < 0 {
			return 0
		}
		if p > 1 {
			return 1
		}
		return p
	case Exited:
		return 1
	default:
		return 0
	}
}

// durationFor is the time needed to cover a fraction of the lane.
func (c *Car) durationFor(fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	return time.Duration(fraction / c.Speed * float64(time.Second))
}

func (c *Car) view(now time.Time) CarView {
	state := c.State()
	return CarView{
		ID:        c.ID,
		Key:       c.Key,
		LaneID:    c.LaneID,
		State:     state,
		Position:  c.positionAt(state, now),
		ArrivedAt: c.ArrivedAt(),
		EnteredAt: c.EnteredAt(),
	}
}
