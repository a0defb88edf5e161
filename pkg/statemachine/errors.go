package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTransition = errors.New("duplicate transition")
	ErrActionFailed        = errors.New("transition action failed")
)

// NoTransitionError indicates the current state has no edge for the event.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.State, e.Event)
}

// IsNoTransition reports whether err is, or wraps, a *NoTransitionError.
func IsNoTransition(err error) bool {
	var target *NoTransitionError
	return errors.As(err, &target)
}
