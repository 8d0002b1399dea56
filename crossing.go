// Package crossing simulates an intersection where each lane is governed by
// its own traffic light and cars are admitted into the crossing by a
// pluggable policy.
//
// Every lane keeps its phase and cars behind one mutex with a condition
// variable. Car actors evaluate the policy on a snapshot, commit with
// BeginCrossing only if the lane is unchanged, and otherwise wait for the
// next change. Lights and cars are flat state machines from pkg/core, so
// their transitions can be observed with the observers in pkg/observers.
//
// Basic usage:
//
//	cfg := crossing.DefaultConfig()
//	sim, err := crossing.New(cfg, crossing.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	err = sim.Run(ctx)
package crossing

import "github.com/anggasct/crossing/pkg/core"

// Re-export the state machine types callers need to observe lights and cars.
type (
	Observer         = core.Observer
	ExtendedObserver = core.ExtendedObserver
	BaseObserver     = core.BaseObserver
	Event            = core.Event
	MachineContext   = core.Context
	ErrorCode        = core.ErrorCode
)

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	return core.GetErrorCode(err)
}
