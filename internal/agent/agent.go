// Package agent defines the responder contract: a pluggable capability
// that answers one user turn given bounded conversation history. Variants
// include model-backed agents (Anthropic API), rule/function-backed
// agents, and streaming agents that yield text fragments lazily.
package agent

import (
	"context"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// Request carries one user turn into an agent.
type Request struct {
	// Input is the user's text for this turn. For retrieval-capable
	// agents this is the raw input; the agent combines it with retrieved
	// context itself.
	Input string
	// UserID identifies the end user.
	UserID string
	// SessionID identifies the conversation session.
	SessionID string
	// History is the bounded prior conversation for this
	// (user, session, agent) triple, oldest-first.
	History []models.Message
	// Params carries additional caller parameters, passed through
	// unmodified.
	Params map[string]string
}

// Agent is the uniform responder contract. Whether an agent streams is a
// static capability (Info().Capabilities.Streaming), never a per-call
// decision: non-streaming agents answer via Process, streaming agents
// additionally implement Streamer.
type Agent interface {
	// Info returns the agent's registration record.
	Info() models.AgentInfo
	// Process produces the complete reply to one user turn. The returned
	// message must have non-empty content.
	Process(ctx context.Context, req Request) (*models.Message, error)
}

// Streamer is implemented by agents whose Streaming capability is set.
// ProcessStream yields text fragments as they become available from the
// underlying transport; the channel is closed when the turn completes or
// ctx is cancelled.
type Streamer interface {
	Agent
	ProcessStream(ctx context.Context, req Request) (<-chan string, error)
}

// FuncAgent adapts a plain Go function to the Agent contract. It backs
// rule bots and remote-function responders that need no model transport.
type FuncAgent struct {
	info models.AgentInfo
	fn   func(ctx context.Context, req Request) (string, error)
}

// NewFuncAgent creates a non-streaming agent from a function.
func NewFuncAgent(name, description string, fn func(ctx context.Context, req Request) (string, error)) *FuncAgent {
	return &FuncAgent{
		info: models.AgentInfo{
			ID:          models.DeriveAgentID(name),
			Name:        name,
			Description: description,
		},
		fn: fn,
	}
}

// Info implements Agent.
func (a *FuncAgent) Info() models.AgentInfo {
	return a.info
}

// Process implements Agent.
func (a *FuncAgent) Process(ctx context.Context, req Request) (*models.Message, error) {
	text, err := a.fn(ctx, req)
	if err != nil {
		return nil, &ProcessError{AgentName: a.info.Name, Err: err}
	}
	if text == "" {
		return nil, &ProcessError{AgentName: a.info.Name, Err: ErrEmptyReply}
	}
	msg := models.AssistantText(text)
	return &msg, nil
}
