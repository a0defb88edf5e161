// Package statemachine implements a small, generic finite state machine.
//
// States and events are any comparable types, typically string-based enums.
// A Machine is built from a list of Transition values; each transition may
// carry Actions that run before the state changes, and a failing action
// aborts the transition. All operations are safe for concurrent use.
//
//	type state string
//	type event string
//
//	m := statemachine.MustNew[state, event]("stopped",
//		statemachine.Transition[state, event]{From: "stopped", Event: "start", To: "running",
//			Actions: []statemachine.Action[state]{bindListener}},
//		statemachine.Transition[state, event]{From: "running", Event: "stop", To: "stopped"},
//	)
//	if err := m.Fire(ctx, "start"); statemachine.IsNoTransition(err) {
//		// already running
//	}
package statemachine
