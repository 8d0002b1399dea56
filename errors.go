package crossing

import (
	"errors"
	"fmt"

	"github.com/anggasct/crossing/pkg/core"
)

// ErrAlreadyRunning is returned when a light cycle or simulation is started twice.
var ErrAlreadyRunning = errors.New("already running")

// InvariantError reports a broken safety or ordering guarantee. It is never
// retried: the actor or driver that detects it stops and returns it.
type InvariantError struct {
	Lane  int
	Car   int
	Rule  string
	Cause error
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("invariant violated on lane %d", e.Lane)
	if e.Car > 0 {
		msg += fmt.Sprintf(" (car %d)", e.Car)
	}
	msg += ": " + e.Rule
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InvariantError) Unwrap() error {
	return e.Cause
}

// ErrorCode lets core.GetErrorCode classify the error.
func (e *InvariantError) ErrorCode() core.ErrorCode {
	return core.ErrCodeInvariantViolation
}

func newInvariantError(lane, car int, rule string, cause error) *InvariantError {
	return &InvariantError{Lane: lane, Car: car, Rule: rule, Cause: cause}
}

// IsInvariantError checks if an error is or wraps an InvariantError
func IsInvariantError(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}
