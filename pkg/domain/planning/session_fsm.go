package planning

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Session states. These stay untyped string constants for statekit.StateID
// compatibility.
const (
	StateClean = "clean"
	StateDirty = "dirty"
)

// Session events.
const (
	EventEdit     = "edit"
	EventCommit   = "commit"
	EventRollback = "rollback"
)

// SessionContext carries state data.
type SessionContext struct {
	SessionID string
}

// SessionStateMachine tracks whether a plan session has uncommitted edits.
type SessionStateMachine struct {
	interpreter *statekit.Interpreter[SessionContext]
}

func NewSessionStateMachine(sessionID string) (*SessionStateMachine, error) {
	builder := statekit.NewMachine[SessionContext]("plan-session").
		WithInitial(statekit.StateID(StateClean)).
		WithContext(SessionContext{SessionID: sessionID})

	builder.State(StateClean).
		On(EventEdit).Target(StateDirty).
		Done()

	// Further edits while dirty keep the session dirty without a transition.
	builder.State(StateDirty).
		On(EventCommit).Target(StateClean).
		On(EventRollback).Target(StateClean).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build session state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &SessionStateMachine{interpreter: interpreter}, nil
}

// Transition attempts to move the session to a new state.
func (sm *SessionStateMachine) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if sm.Current() != before {
		return nil
	}
	return fmt.Errorf("the action '%s' is not allowed while the session is '%s'", event, before)
}

// MarkEdited moves a clean session to dirty; dirty sessions stay dirty.
func (sm *SessionStateMachine) MarkEdited() error {
	if sm.IsDirty() {
		return nil
	}
	return sm.Transition(EventEdit)
}

func (sm *SessionStateMachine) Current() string {
	return string(sm.interpreter.State().Value)
}

// IsDirty reports whether uncommitted edits are present.
func (sm *SessionStateMachine) IsDirty() bool {
	return sm.Current() == StateDirty
}
