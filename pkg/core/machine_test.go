package core

import (
	"errors"
	"testing"
)

func TestStateMachine_Start(t *testing.T) {
	machine := CreateCycleMachine(t)
	observer := NewTestObserver()
	machine.AddObserver(observer)

	if err := machine.Start(); err != nil {
		t.Fatalf("Expected no error starting machine, got: %v", err)
	}

	AssertState(t, machine, "red")
	if observer.Started != 1 {
		t.Errorf("Expected one start notification, got %d", observer.Started)
	}
	if len(observer.StateEnters) != 1 || observer.StateEnters[0] != "red" {
		t.Errorf("Expected entry into red, got %v", observer.StateEnters)
	}
}

func TestStateMachine_StartAlreadyStarted(t *testing.T) {
	machine := CreateCycleMachine(t)

	_ = machine.Start()
	if err := machine.Start(); err == nil {
		t.Error("Expected error when starting already started machine")
	}
}

func TestStateMachine_StopNotStarted(t *testing.T) {
	machine := CreateCycleMachine(t)

	err := machine.Stop()
	if !IsMachineError(err) {
		t.Errorf("Expected machine error, got: %v", err)
	}
}

func TestStateMachine_EventBeforeStart(t *testing.T) {
	machine := CreateCycleMachine(t)

	result := machine.HandleEvent("next", nil)
	if result.Success() {
		t.Fatal("Expected event to be rejected before start")
	}
	if GetErrorCode(result.Error) != ErrCodeMachineNotStarted {
		t.Errorf("Expected ErrCodeMachineNotStarted, got %v", GetErrorCode(result.Error))
	}
}

func TestStateMachine_Cycle(t *testing.T) {
	machine := CreateCycleMachine(t)
	observer := NewTestObserver()
	machine.AddObserver(observer)
	_ = machine.Start()

	for _, want := range []string{"green", "yellow", "red", "green"} {
		result := SendEvent(t, machine, "next")
		if result.CurrentState != want {
			t.Errorf("Expected %s, got %s", want, result.CurrentState)
		}
	}

	history := machine.History()
	expected := []string{"red", "green", "yellow", "red", "green"}
	if len(history) != len(expected) {
		t.Fatalf("Expected history %v, got %v", expected, history)
	}
	for i := range expected {
		if history[i] != expected[i] {
			t.Errorf("history[%d]: expected %s, got %s", i, expected[i], history[i])
		}
	}
	if len(observer.Transitions) != 4 {
		t.Errorf("Expected 4 transitions, got %d", len(observer.Transitions))
	}
	if observer.Transitions[0].Machine != "cycle" {
		t.Errorf("Expected machine name cycle, got %s", observer.Transitions[0].Machine)
	}
}

func TestStateMachine_UnknownEventRejected(t *testing.T) {
	machine := CreateCycleMachine(t)
	observer := NewTestObserver()
	machine.AddObserver(observer)
	_ = machine.Start()

	result := machine.HandleEvent("back", nil)
	if result.Success() {
		t.Fatal("Expected unknown event to be rejected")
	}
	if !IsTransitionError(result.Error) {
		t.Errorf("Expected transition error, got: %v", result.Error)
	}
	if len(observer.EventRejects) != 1 {
		t.Errorf("Expected one rejection notification, got %d", len(observer.EventRejects))
	}
	AssertState(t, machine, "red")
}

func TestStateMachine_EmptyEventRejected(t *testing.T) {
	machine := CreateCycleMachine(t)
	_ = machine.Start()

	if result := machine.HandleEvent("  ", nil); result.Success() {
		t.Error("Expected empty event name to be rejected")
	}
}

func TestStateMachine_GuardSelectsTransition(t *testing.T) {
	allow := false
	def, err := NewMachine().
		State("waiting").Initial().
		To("crossing").On("go").When(func(Context) bool { return allow }).
		State("crossing").Final().
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	machine := def.CreateInstance("guarded")
	observer := NewTestObserver()
	machine.AddObserver(observer)
	_ = machine.Start()

	result := machine.HandleEvent("go", nil)
	if !IsGuardError(result.Error) {
		t.Fatalf("Expected guard error, got: %v", result.Error)
	}

	allow = true
	SendEvent(t, machine, "go")
	AssertState(t, machine, "crossing")
	if !machine.IsFinished() {
		t.Error("Expected machine to be in a final state")
	}
	if len(observer.Guards) != 2 || observer.Guards[0] || !observer.Guards[1] {
		t.Errorf("Expected guard results [false true], got %v", observer.Guards)
	}
}

func TestStateMachine_ActionFailureAbortsTransition(t *testing.T) {
	def, err := NewMachine().
		State("a").Initial().
		To("b").On("go").Do(func(Context) error { return errors.New("boom") }).
		State("b").
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	machine := def.CreateInstance("failing")
	_ = machine.Start()

	result := machine.HandleEvent("go", nil)
	if result.Success() {
		t.Fatal("Expected failing action to abort the transition")
	}
	if GetErrorCode(result.Error) != ErrCodeActionFailed {
		t.Errorf("Expected ErrCodeActionFailed, got %v", GetErrorCode(result.Error))
	}
	AssertState(t, machine, "a")
}

func TestStateMachine_EntryActionPanicReported(t *testing.T) {
	def, err := NewMachine().
		State("a").Initial().To("b").On("go").
		State("b").OnEntry(func(Context) error { panic("entry") }).
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	machine := def.CreateInstance("panicky")
	observer := NewTestObserver()
	machine.AddObserver(observer)
	_ = machine.Start()

	SendEvent(t, machine, "go")
	AssertState(t, machine, "b")
	if len(observer.Errors) != 1 {
		t.Errorf("Expected entry panic to be reported once, got %d", len(observer.Errors))
	}
}

func TestStateMachine_EventData(t *testing.T) {
	var seen any
	def, err := NewMachine().
		State("a").Initial().
		To("b").On("go").Do(func(ctx Context) error {
		seen = ctx.GetEventData()
		return nil
	}).
		State("b").
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}
	machine := def.CreateInstance("data")
	_ = machine.Start()

	if result := machine.HandleEvent("go", 42); !result.Success() {
		t.Fatalf("Expected event to succeed, got: %v", result.Error)
	}
	if seen != 42 {
		t.Errorf("Expected event data 42, got %v", seen)
	}
}
