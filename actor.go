package crossing

import (
	"log/slog"
	"time"
)

const minStep = time.Millisecond

// actor runs one car from arrival to exit on its own goroutine.
type actor struct {
	car         *Car
	lane        *Lane
	policy      Policy
	clock       Clock
	tick        time.Duration
	waitWarning time.Duration
	logger      *slog.Logger
}

func (a *actor) run() error {
	if err := a.lane.Attach(a.car); err != nil {
		return err
	}
	a.logger.Debug("car queued", "car", a.car.ID, "lane", a.lane.ID())

	if err := a.await(); err != nil {
		return err
	}
	return a.cross()
}

// await blocks until the policy admits the car and the admission commits
// against an unchanged lane.
func (a *actor) await() error {
	warned := false
	for {
		snap := a.lane.Snapshot()
		self, ok := snap.Car(a.car.ID)
		if !ok {
			return newInvariantError(a.lane.ID(), a.car.ID, "waiting car missing from its lane", nil)
		}

		if snap.Phase.AllowsEntry() && a.policy.CanCross(snap, self) {
			entered, err := a.lane.BeginCrossing(a.car, snap.Version)
			if err != nil {
				return err
			}
			if entered {
				return nil
			}
			continue
		}

		if !warned && a.waitWarning > 0 {
			if waited := snap.TakenAt.Sub(self.ArrivedAt); waited > a.waitWarning {
				a.logger.Warn("car waiting longer than expected",
					"car", a.car.ID, "lane", a.lane.ID(), "waited", waited, "phase", snap.Phase)
				warned = true
			}
		}
		a.lane.WaitForChange(snap.Version)
	}
}

// cross advances the car in tick-sized steps until it reaches the end of
// the lane, then detaches it.
func (a *actor) cross() error {
	clearance, spaced := 0.0, false
	if s, ok := a.policy.(Spacer); ok {
		clearance, spaced = s.Clearance(), true
	}

	for {
		pos := a.car.positionAt(Crossing, a.clock.Now())
		if spaced && pos > clearance {
			a.lane.Notify()
			spaced = false
		}
		if pos >= 1 {
			break
		}

		step := min(a.tick, a.car.durationFor(1-pos))
		if spaced {
			step = min(step, a.car.durationFor(clearance-pos)+minStep)
		}
		a.clock.Sleep(max(step, minStep))
	}

	return a.lane.Detach(a.car)
}
