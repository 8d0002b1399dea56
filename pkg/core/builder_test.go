package core

import (
	"testing"
)

func TestBuilder_RequiresInitialState(t *testing.T) {
	_, err := NewMachine().
		State("a").To("b").On("go").
		State("b").
		Build()

	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestBuilder_RejectsSecondInitialState(t *testing.T) {
	_, err := NewMachine().
		State("a").Initial().
		State("b").Initial().
		Build()

	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestBuilder_RejectsUnknownTarget(t *testing.T) {
	_, err := NewMachine().
		State("a").Initial().To("missing").On("go").
		Build()

	if GetErrorCode(err) != ErrCodeStateNotFound {
		t.Errorf("Expected ErrCodeStateNotFound, got %v (%v)", GetErrorCode(err), err)
	}
}

func TestBuilder_RejectsTransitionWithoutEvent(t *testing.T) {
	_, err := NewMachine().
		State("a").Initial().To("b").
		State("b").
		Build()

	if !IsConfigurationError(err) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestBuilder_DefinitionShape(t *testing.T) {
	def, err := NewMachine().
		State("a").Initial().To("b").On("go").To("c").On("skip").
		State("b").To("c").On("go").
		State("c").Final().
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}

	if def.InitialState() != "a" {
		t.Errorf("Expected initial state a, got %s", def.InitialState())
	}
	states := def.States()
	if len(states) != 3 || states[0] != "a" || states[2] != "c" {
		t.Errorf("Expected states in declaration order, got %v", states)
	}
	transitions := def.Transitions()
	if len(transitions) != 3 {
		t.Fatalf("Expected 3 transitions, got %d", len(transitions))
	}
	if got := transitions[1].String(); got != "a --[skip]--> c" {
		t.Errorf("Unexpected transition string %q", got)
	}
}

func TestBuilder_InstancesAreIndependent(t *testing.T) {
	def, err := NewMachine().
		State("a").Initial().To("b").On("go").
		State("b").
		Build()
	if err != nil {
		t.Fatalf("Expected valid definition, got: %v", err)
	}

	first := def.CreateInstance("first")
	second := def.CreateInstance("second")
	_ = first.Start()
	_ = second.Start()

	SendEvent(t, first, "go")
	AssertState(t, first, "b")
	AssertState(t, second, "a")
}

func TestObserverManager_RecoversPanics(t *testing.T) {
	machine := CreateCycleMachine(t)
	recorder := NewTestObserver()
	panicky := &panickingObserver{}
	machine.AddObserver(panicky)
	machine.AddObserver(recorder)
	_ = machine.Start()

	SendEvent(t, machine, "next")
	AssertState(t, machine, "green")
	if len(recorder.Transitions) != 1 {
		t.Errorf("Expected later observers to still be notified, got %d transitions", len(recorder.Transitions))
	}
	if panicky.errors != 1 {
		t.Errorf("Expected the panic to be reported through OnError once, got %d", panicky.errors)
	}
}

type panickingObserver struct {
	BaseObserver
	errors int
}

func (p *panickingObserver) OnError(err error, ctx Context) {
	p.errors++
}

func (p *panickingObserver) OnTransition(from string, to string, event Event, ctx Context) {
	panic("observer")
}
