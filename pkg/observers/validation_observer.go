package observers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/anggasct/crossing"
	"github.com/anggasct/crossing/pkg/core"
)

// ValidationObserver checks safety invariants on every lane change and
// rejects any machine transition not declared in the allowed set. It never
// stops the run; violations are collected for Err.
type ValidationObserver struct {
	core.BaseObserver

	policy             crossing.Policy
	allowedTransitions map[string]map[string]bool
	crossingIn         map[string]int
	violations         []error
	mutex              sync.RWMutex
}

// NewValidationObserver creates a validation observer that verifies every
// lane snapshot against policy. It allows the car and light lifecycles.
func NewValidationObserver(policy crossing.Policy) *ValidationObserver {
	o := &ValidationObserver{
		policy:             policy,
		allowedTransitions: make(map[string]map[string]bool),
		crossingIn:         make(map[string]int),
	}
	for _, def := range []core.MachineDefinition{crossing.CarLifecycle(), crossing.LightLifecycle()} {
		for _, t := range def.Transitions() {
			o.AddAllowedTransition(t.SourceState, t.TargetState)
		}
	}
	return o
}

// AddAllowedTransition adds an allowed transition
func (o *ValidationObserver) AddAllowedTransition(from, to string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if _, exists := o.allowedTransitions[from]; !exists {
		o.allowedTransitions[from] = make(map[string]bool)
	}
	o.allowedTransitions[from][to] = true
}

func (o *ValidationObserver) violate(lane, car int, format string, args ...any) {
	o.violations = append(o.violations, &crossing.InvariantError{
		Lane: lane,
		Car:  car,
		Rule: fmt.Sprintf(format, args...),
	})
}

func (o *ValidationObserver) OnLaneChange(change crossing.Change) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	snap := change.Snapshot
	if o.policy != nil {
		if err := o.policy.Verify(snap); err != nil {
			o.violations = append(o.violations, err)
		}
	}

	for _, c := range snap.Cars {
		if c.State != crossing.Waiting && c.State != crossing.Crossing {
			o.violate(snap.LaneID, c.ID, "car listed in lane while %s", c.State)
		}
		if c.LaneID != snap.LaneID {
			o.violate(snap.LaneID, c.ID, "car of lane %d listed here", c.LaneID)
		}
	}
	if n := len(lo.UniqBy(snap.Cars, func(c crossing.CarView) string { return c.Key })); n != len(snap.Cars) {
		o.violate(snap.LaneID, 0, "car listed twice")
	}

	if change.Car == nil {
		return
	}
	car := change.Car
	_, present := snap.Car(car.ID)

	switch change.Kind {
	case crossing.ChangeAttached:
		if !present {
			o.violate(snap.LaneID, car.ID, "attached car missing from lane")
		}
	case crossing.ChangeEntered:
		if !snap.Phase.AllowsEntry() {
			o.violate(snap.LaneID, car.ID, "car entered on %s", snap.Phase)
		}
		if other, ok := o.crossingIn[car.Key]; ok {
			o.violate(snap.LaneID, car.ID, "car already crossing lane %d", other)
		}
		o.crossingIn[car.Key] = snap.LaneID
	case crossing.ChangeExited:
		if present {
			o.violate(snap.LaneID, car.ID, "exited car still listed")
		}
		delete(o.crossingIn, car.Key)
	}
}

// OnTransition validates transitions
func (o *ValidationObserver) OnTransition(from string, to string, event core.Event, ctx core.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if !o.allowedTransitions[from][to] {
		o.violations = append(o.violations, fmt.Errorf("%s: transition %s -> %s on %s not allowed",
			ctx.MachineName(), from, to, event.GetName()))
	}
}

// OnError records machine errors as violations
func (o *ValidationObserver) OnError(err error, ctx core.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.violations = append(o.violations, fmt.Errorf("%s: %w", ctx.MachineName(), err))
}

// GetViolations returns all validation violations
func (o *ValidationObserver) GetViolations() []error {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return append([]error(nil), o.violations...)
}

// HasViolations returns whether any violations occurred
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Err joins every violation, or returns nil.
func (o *ValidationObserver) Err() error {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return errors.Join(o.violations...)
}

// Reset resets the validation state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.crossingIn = make(map[string]int)
	o.violations = nil
}
