package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Action runs while a transition is in progress. A non-nil error aborts the
// transition and leaves the machine in its previous state.
type Action[S comparable] func(ctx context.Context, from, to S) error

// Observer is notified after every successful transition.
type Observer[S, E comparable] func(from, to S, event E)

// Transition is one edge of the machine: Event moves From to To after all
// Actions succeed.
type Transition[S, E comparable] struct {
	From    S
	Event   E
	To      S
	Actions []Action[S]
}

// Machine is a thread-safe finite state machine keyed by (state, event).
type Machine[S, E comparable] struct {
	mu        sync.RWMutex
	initial   S
	current   S
	table     map[S]map[E]Transition[S, E]
	observers []Observer[S, E]
}

// New builds a machine in the initial state. Registering the same
// (From, Event) pair twice returns an error joined with ErrDuplicateTransition.
func New[S, E comparable](initial S, transitions ...Transition[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		initial: initial,
		current: initial,
		table:   make(map[S]map[E]Transition[S, E]),
	}
	for _, t := range transitions {
		if err := m.add(t); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew[S, E comparable](initial S, transitions ...Transition[S, E]) *Machine[S, E] {
	m, err := New(initial, transitions...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine[S, E]) add(t Transition[S, E]) error {
	events, ok := m.table[t.From]
	if !ok {
		events = make(map[E]Transition[S, E])
		m.table[t.From] = events
	}
	if _, dup := events[t.Event]; dup {
		return fmt.Errorf("%w: %v on %v", ErrDuplicateTransition, t.Event, t.From)
	}
	events[t.Event] = t
	return nil
}

// Observe registers fn to be called after each transition. Observers run
// with the machine locked and must not call back into it.
func (m *Machine[S, E]) Observe(fn Observer[S, E]) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is currently in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// CanFire reports whether event has an edge from the current state.
func (m *Machine[S, E]) CanFire(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.table[m.current][event]
	return ok
}

// Fire applies event to the current state. It returns *NoTransitionError when
// no edge exists, or the first action error wrapped with ErrActionFailed.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.table[m.current][event]
	if !ok {
		return &NoTransitionError{State: fmt.Sprint(m.current), Event: fmt.Sprint(event)}
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, t.From, t.To); err != nil {
			return fmt.Errorf("%w: %v -> %v: %w", ErrActionFailed, t.From, t.To, err)
		}
	}

	m.current = t.To
	for _, o := range m.observers {
		o(t.From, t.To, event)
	}
	return nil
}

// Reset returns the machine to its initial state without running actions.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	m.current = m.initial
	m.mu.Unlock()
}
