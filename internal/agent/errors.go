package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyReply indicates an agent produced a reply with no content.
// The orchestrator treats it like any other process failure.
var ErrEmptyReply = errors.New("agent produced empty reply")

// ErrToolRecursionExhausted marks a tool-use exchange that hit its
// recursion bound. It is soft: the loop still returns the last available
// message, and the marker only appears in logs, never to the caller.
var ErrToolRecursionExhausted = errors.New("tool recursion bound reached")

// ProcessError wraps any failure that prevented an agent from producing
// output for a turn.
type ProcessError struct {
	// AgentName identifies the failing agent.
	AgentName string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.AgentName, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProcessError) Unwrap() error {
	return e.Err
}
