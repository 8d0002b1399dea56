package core

import (
	"errors"
	"fmt"
)

// MachineBuilder provides a fluent interface for declaring a flat machine
type MachineBuilder interface {
	State(id string) StateBuilder
	Build() (MachineDefinition, error)
}

// StateBuilder configures one state
type StateBuilder interface {
	Initial() StateBuilder
	Final() StateBuilder
	OnEntry(action ActionFunc) StateBuilder
	To(target string) TransitionBuilder

	State(id string) StateBuilder
	Build() (MachineDefinition, error)
}

// TransitionBuilder configures one outgoing transition of the current state
type TransitionBuilder interface {
	On(event string) TransitionBuilder
	When(guard GuardFunc) TransitionBuilder
	Do(action ActionFunc) TransitionBuilder
	To(target string) TransitionBuilder

	State(id string) StateBuilder
	Build() (MachineDefinition, error)
}

// MachineDefinition is an immutable machine template. Each instance has its
// own current state and observers.
type MachineDefinition interface {
	CreateInstance(name string) *StateMachine
	InitialState() string
	States() []string
	Transitions() []Transition
}

type machineBuilder struct {
	order        []string
	states       map[string]*AtomicState
	transitions  []*Transition
	initialState string
	errs         []error
}

// NewMachine starts a new machine declaration
func NewMachine() MachineBuilder {
	return &machineBuilder{states: make(map[string]*AtomicState)}
}

func (mb *machineBuilder) State(id string) StateBuilder {
	state, exists := mb.states[id]
	if !exists {
		state = NewAtomicState(id)
		mb.states[id] = state
		mb.order = append(mb.order, id)
	}
	return &stateBuilder{mb: mb, state: state}
}

func (mb *machineBuilder) Build() (MachineDefinition, error) {
	if err := mb.validate(); err != nil {
		return nil, err
	}

	def := &definition{
		initialState: mb.initialState,
		order:        append([]string(nil), mb.order...),
		states:       make(map[string]State, len(mb.states)),
		transitions:  make(map[string][]Transition),
	}
	for id, state := range mb.states {
		def.states[id] = state
	}
	for _, t := range mb.transitions {
		def.transitions[t.SourceState] = append(def.transitions[t.SourceState], *t)
	}
	return def, nil
}

func (mb *machineBuilder) validate() error {
	errs := append([]error(nil), mb.errs...)

	if mb.initialState == "" {
		errs = append(errs, NewConfigurationError("MachineBuilder", "no initial state defined"))
	}
	for _, t := range mb.transitions {
		if t.EventName == "" {
			errs = append(errs, NewConfigurationError("MachineBuilder",
				fmt.Sprintf("transition %s->%s has no event", t.SourceState, t.TargetState)))
		}
		if _, ok := mb.states[t.TargetState]; !ok {
			errs = append(errs, NewStateNotFoundError(t.TargetState))
		}
	}
	return errors.Join(errs...)
}

type stateBuilder struct {
	mb    *machineBuilder
	state *AtomicState
}

func (sb *stateBuilder) Initial() StateBuilder {
	if sb.mb.initialState != "" && sb.mb.initialState != sb.state.id {
		sb.mb.errs = append(sb.mb.errs, NewConfigurationError("MachineBuilder",
			fmt.Sprintf("initial state already set to '%s', cannot set '%s'", sb.mb.initialState, sb.state.id)))
		return sb
	}
	sb.mb.initialState = sb.state.id
	return sb
}

func (sb *stateBuilder) Final() StateBuilder {
	sb.state.final = true
	return sb
}

func (sb *stateBuilder) OnEntry(action ActionFunc) StateBuilder {
	sb.state.WithEntryAction(action)
	return sb
}

func (sb *stateBuilder) To(target string) TransitionBuilder {
	t := NewTransition(sb.state.id, target, "")
	sb.mb.transitions = append(sb.mb.transitions, t)
	return &transitionBuilder{sb: sb, transition: t}
}

func (sb *stateBuilder) State(id string) StateBuilder {
	return sb.mb.State(id)
}

func (sb *stateBuilder) Build() (MachineDefinition, error) {
	return sb.mb.Build()
}

type transitionBuilder struct {
	sb         *stateBuilder
	transition *Transition
}

func (tb *transitionBuilder) On(event string) TransitionBuilder {
	tb.transition.EventName = event
	return tb
}

func (tb *transitionBuilder) When(guard GuardFunc) TransitionBuilder {
	tb.transition.WithGuard(guard)
	return tb
}

func (tb *transitionBuilder) Do(action ActionFunc) TransitionBuilder {
	tb.transition.WithAction(action)
	return tb
}

// To declares another transition out of the same source state
func (tb *transitionBuilder) To(target string) TransitionBuilder {
	return tb.sb.To(target)
}

func (tb *transitionBuilder) State(id string) StateBuilder {
	return tb.sb.State(id)
}

func (tb *transitionBuilder) Build() (MachineDefinition, error) {
	return tb.sb.Build()
}

type definition struct {
	initialState string
	order        []string
	states       map[string]State
	transitions  map[string][]Transition
}

func (d *definition) CreateInstance(name string) *StateMachine {
	return newStateMachine(name, d)
}

func (d *definition) InitialState() string {
	return d.initialState
}

func (d *definition) States() []string {
	return append([]string(nil), d.order...)
}

func (d *definition) Transitions() []Transition {
	var out []Transition
	for _, id := range d.order {
		out = append(out, d.transitions[id]...)
	}
	return out
}
