package core

import (
	"sync"
	"testing"
)

// TestObserver captures every observer callback
type TestObserver struct {
	mutex        sync.RWMutex
	Transitions  []TransitionEvent
	StateEnters  []string
	StateExits   []string
	EventRejects []string
	Errors       []error
	Guards       []bool
	Started      int
	Stopped      int
}

type TransitionEvent struct {
	From    string
	To      string
	Event   string
	Machine string
}

func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnTransition(from string, to string, event Event, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Transitions = append(o.Transitions, TransitionEvent{From: from, To: to, Event: event.GetName(), Machine: ctx.MachineName()})
}

func (o *TestObserver) OnStateEnter(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateEnters = append(o.StateEnters, state)
}

func (o *TestObserver) OnStateExit(state string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.StateExits = append(o.StateExits, state)
}

func (o *TestObserver) OnGuardEvaluation(from string, to string, event Event, result bool, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Guards = append(o.Guards, result)
}

func (o *TestObserver) OnEventRejected(event Event, reason string, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.EventRejects = append(o.EventRejects, reason)
}

func (o *TestObserver) OnError(err error, ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

func (o *TestObserver) OnMachineStarted(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started++
}

func (o *TestObserver) OnMachineStopped(ctx Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Stopped++
}

// CreateCycleMachine builds red -> green -> yellow -> red on "next".
func CreateCycleMachine(t *testing.T) *StateMachine {
	t.Helper()
	def, err := NewMachine().
		State("red").Initial().To("green").On("next").
		State("green").To("yellow").On("next").
		State("yellow").To("red").On("next").
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	return def.CreateInstance("cycle")
}

// AssertState fails the test unless the machine is in expected
func AssertState(t *testing.T, sm *StateMachine, expected string) {
	t.Helper()
	if got := sm.CurrentState(); got != expected {
		t.Errorf("Expected state %s, got %s", expected, got)
	}
}

// SendEvent fails the test unless the event is processed
func SendEvent(t *testing.T, sm *StateMachine, event string) *EventResult {
	t.Helper()
	result := sm.HandleEvent(event, nil)
	if !result.Success() {
		t.Fatalf("Expected event %s to succeed, got: %v", event, result.Error)
	}
	return result
}
