package orchestrator

import (
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// Metadata identifies one routed turn: who asked, what they asked, and
// which agent answered.
type Metadata struct {
	// UserInput is the raw input that was routed.
	UserInput string
	// AgentID is the answering agent's id, empty for rejections.
	AgentID string
	// AgentName is the answering agent's display name.
	AgentName string
	// UserID identifies the end user.
	UserID string
	// SessionID identifies the conversation.
	SessionID string
	// Params carries the caller's additional parameters unchanged.
	Params map[string]string
	// Confidence is the classifier's confidence for this selection.
	Confidence float64
	// Fallback is true when the default agent answered because
	// classification could not select one.
	Fallback bool
}

// Envelope is one routed answer. Exactly one of Message or Stream is set,
// indicated by Streaming: a buffered Envelope carries the full reply, a
// streaming one carries a fragment channel the caller must drain.
type Envelope struct {
	// Metadata describes the routing decision.
	Metadata Metadata
	// Message is the complete reply for buffered envelopes.
	Message *models.Message
	// Stream yields reply fragments for streaming envelopes. Closed by
	// the producer when the reply is complete.
	Stream <-chan string
	// Streaming reports which delivery shape this envelope uses.
	Streaming bool

	// persisted is closed once history bookkeeping for this turn has
	// finished (or been skipped).
	persisted chan struct{}
}

func newEnvelope(md Metadata) *Envelope {
	return &Envelope{
		Metadata:  md,
		persisted: make(chan struct{}),
	}
}

// Text returns the buffered reply text. Empty for streaming envelopes;
// callers of those must drain Stream instead.
func (e *Envelope) Text() string {
	if e.Streaming || e.Message == nil {
		return ""
	}
	return e.Message.Text()
}

// Persisted returns a channel closed once this turn's history write has
// completed or been skipped. For streaming envelopes that is after the
// stream has been fully drained.
func (e *Envelope) Persisted() <-chan struct{} {
	return e.persisted
}
