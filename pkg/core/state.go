package core

// ActionFunc represents an action function
type ActionFunc func(ctx Context) error

// GuardFunc represents a guard condition function
type GuardFunc func(ctx Context) bool

// State is a single node of a flat state machine
type State interface {
	ID() string
	Enter(ctx Context) error
	IsFinal() bool
}

// AtomicState is a state with an optional entry action
type AtomicState struct {
	id          string
	entryAction ActionFunc
	final       bool
}

// NewAtomicState creates a new atomic state
func NewAtomicState(id string) *AtomicState {
	return &AtomicState{id: id}
}

// ID returns the state identifier
func (s *AtomicState) ID() string {
	return s.id
}

// Enter executes the entry action
func (s *AtomicState) Enter(ctx Context) error {
	if s.entryAction == nil {
		return nil
	}
	return safeExecuteAction(s.entryAction, ctx)
}

// IsFinal returns whether this is a final state
func (s *AtomicState) IsFinal() bool {
	return s.final
}

// WithEntryAction sets the entry action for the state
func (s *AtomicState) WithEntryAction(action ActionFunc) *AtomicState {
	s.entryAction = action
	return s
}
