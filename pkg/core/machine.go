package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MachineState represents the run state of the machine itself
type MachineState int

const (
	// Machine is stopped and not processing events
	MachineStateStopped MachineState = iota
	// Machine is running and processing events
	MachineStateStarted
)

// StateMachine is a flat, synchronous state machine. Events are handled on the
// caller's goroutine under the machine mutex, so observers and actions run
// serialized per machine.
type StateMachine struct {
	name         string
	currentState string
	initialState string
	states       map[string]State
	transitions  map[string][]Transition
	context      *StateMachineContext
	observers    *ObserverManager
	machineState MachineState
	mutex        sync.RWMutex

	history []string
}

func newStateMachine(name string, def *definition) *StateMachine {
	sm := &StateMachine{
		name:         name,
		initialState: def.initialState,
		states:       def.states,
		transitions:  def.transitions,
		observers:    NewObserverManager(),
		machineState: MachineStateStopped,
	}
	sm.context = NewContext(context.Background(), name)
	return sm
}

// safeEvaluateGuard safely evaluates a guard function with panic recovery
func safeEvaluateGuard(guard GuardFunc, ctx Context) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	return guard(ctx), nil
}

// safeExecuteAction safely executes an action function with panic recovery
func safeExecuteAction(action ActionFunc, ctx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	return action(ctx)
}

// Name returns the machine name
func (sm *StateMachine) Name() string {
	return sm.name
}

// Start enters the initial state
func (sm *StateMachine) Start() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState == MachineStateStarted {
		return NewMachineError(ErrCodeInvalidState, "Start", "machine is already started")
	}

	if sm.initialState == "" {
		return NewConfigurationError("StateMachine", "no initial state defined")
	}

	initial, exists := sm.states[sm.initialState]
	if !exists {
		return NewConfigurationError("StateMachine", fmt.Sprintf("initial state '%s' does not exist", sm.initialState))
	}

	sm.machineState = MachineStateStarted
	sm.currentState = sm.initialState
	sm.history = append(sm.history, sm.currentState)
	sm.context.updateCurrentState(sm.currentState)

	if err := initial.Enter(sm.context); err != nil {
		sm.observers.NotifyError(NewActionError("entry", sm.currentState, err), sm.context)
	}
	sm.observers.NotifyStateEnter(sm.currentState, sm.context)
	sm.observers.NotifyMachineStarted(sm.context)

	return nil
}

// Stop stops the state machine
func (sm *StateMachine) Stop() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewMachineNotStartedError("Stop")
	}

	sm.observers.NotifyMachineStopped(sm.context)
	sm.machineState = MachineStateStopped
	return nil
}

// IsStarted reports whether the machine accepts events
func (sm *StateMachine) IsStarted() bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.machineState == MachineStateStarted
}

// CurrentState returns the current state
func (sm *StateMachine) CurrentState() string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// IsFinished reports whether the current state is a final state
func (sm *StateMachine) IsFinished() bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	state, ok := sm.states[sm.currentState]
	return ok && state.IsFinal()
}

// History returns every state entered since Start, oldest first
func (sm *StateMachine) History() []string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	out := make([]string, len(sm.history))
	copy(out, sm.history)
	return out
}

// HandleEvent handles an event synchronously on the caller's goroutine
func (sm *StateMachine) HandleEvent(eventName string, eventData any) *EventResult {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.machineState != MachineStateStarted {
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection("machine is not started").
			WithError(NewMachineNotStartedError("HandleEvent"))
	}

	event := NewEvent(eventName, eventData)

	if strings.TrimSpace(eventName) == "" {
		reason := "event name cannot be empty"
		sm.observers.NotifyEventRejected(event, reason, sm.context)
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection(reason).
			WithError(errors.New(reason))
	}

	transition, err := sm.findMatchingTransition(event)
	if err != nil {
		sm.observers.NotifyEventRejected(event, err.Error(), sm.context)
		return NewEventResult(false, false, sm.currentState, sm.currentState).
			WithRejection(err.Error()).
			WithError(err)
	}

	previousState := sm.currentState
	targetState := transition.TargetState
	sm.context.updateTransitionInfo(previousState, targetState, event)

	// Transition action runs before the state change; a failure aborts the transition
	if transition.Action != nil {
		if err := safeExecuteAction(transition.Action, sm.context); err != nil {
			actionErr := NewActionError("transition", previousState, err)
			sm.observers.NotifyEventRejected(event, actionErr.Error(), sm.context)
			return NewEventResult(false, false, previousState, previousState).
				WithRejection(actionErr.Error()).
				WithError(actionErr)
		}
	}

	sm.currentState = targetState
	sm.history = append(sm.history, targetState)
	sm.context.updateCurrentState(targetState)

	if target, ok := sm.states[targetState]; ok {
		if err := target.Enter(sm.context); err != nil {
			sm.observers.NotifyError(NewActionError("entry", targetState, err), sm.context)
		}
	}

	sm.observers.NotifyStateExit(previousState, sm.context)
	sm.observers.NotifyTransition(previousState, targetState, event, sm.context)
	sm.observers.NotifyStateEnter(targetState, sm.context)

	return NewEventResult(true, true, previousState, targetState)
}

// findMatchingTransition returns the first transition out of the current state
// whose event matches and whose guard passes. Declaration order decides ties.
func (sm *StateMachine) findMatchingTransition(event Event) (*Transition, error) {
	var rejected *Transition

	for _, transition := range sm.transitions[sm.currentState] {
		if transition.EventName != event.GetName() {
			continue
		}
		if transition.Guard == nil {
			return &transition, nil
		}

		passed, err := safeEvaluateGuard(transition.Guard, sm.context)
		if err != nil {
			sm.observers.NotifyError(err, sm.context)
			continue
		}
		sm.observers.NotifyGuardEvaluation(transition.SourceState, transition.TargetState, event, passed, sm.context)
		if passed {
			return &transition, nil
		}
		rejected = &transition
	}

	if rejected != nil {
		return nil, NewGuardRejectedError(rejected.SourceState, rejected.TargetState, event.GetName())
	}
	return nil, NewNoTransitionError(sm.currentState, event.GetName())
}

// AddObserver adds an observer to the state machine
func (sm *StateMachine) AddObserver(observer Observer) {
	sm.observers.AddObserver(observer)
}

// RemoveObserver removes an observer from the state machine
func (sm *StateMachine) RemoveObserver(observer Observer) {
	sm.observers.RemoveObserver(observer)
}

// Context returns the machine context
func (sm *StateMachine) Context() Context {
	return sm.context
}
