// Package classifier selects which agent should answer a user's turn.
// Implementations share one interface: model-backed classification through
// a constrained structured-output block, or rule-based keyword matching.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// ErrNoStructuredOutput indicates the underlying response contained no
// structured-output block at all.
var ErrNoStructuredOutput = errors.New("no structured output block in response")

// MalformedStructuredOutputError indicates a structured-output block was
// present but did not satisfy the wire shape. Distinct from
// ErrNoStructuredOutput and never silently defaulted.
type MalformedStructuredOutputError struct {
	// Reason describes what was wrong with the block.
	Reason string
}

// Error implements the error interface.
func (e *MalformedStructuredOutputError) Error() string {
	return fmt.Sprintf("malformed structured output: %s", e.Reason)
}

// Result is one classification decision. Agent is nil when the classifier
// produced a decision naming an unknown agent; Confidence is preserved in
// that case so callers can distinguish it from classification failure.
type Result struct {
	// Agent is the selected agent's registration record, or nil.
	Agent *models.AgentInfo
	// Confidence is the classifier's confidence in [0,1]. Meaningless
	// when Agent is nil and the classifier itself errored.
	Confidence float64
}

// Resolver maps an agent name (or id) from classifier output to its
// registration record. Returns nil for unknown names.
type Resolver func(name string) *models.AgentInfo

// Classifier maps free text plus conversation context to a Result.
// Implementations may be probabilistic; only the shape is fixed.
type Classifier interface {
	Classify(ctx context.Context, input string, history []models.Message) (Result, error)
}
