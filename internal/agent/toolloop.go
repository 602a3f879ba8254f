package agent

import (
	"context"
	"log"
	"strings"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// DefaultToolMaxRecursions bounds the tool-use exchange when no explicit
// bound is configured.
const DefaultToolMaxRecursions = 20

// RoundFunc performs one model round over the working conversation and
// returns the assistant's reply, which may contain tool-use blocks.
type RoundFunc func(ctx context.Context, conversation []models.Message) (models.Message, error)

// ToolHandler resolves one round of tool calls. Given the assistant
// message carrying tool-use blocks and the conversation so far, it returns
// a single user-side message bearing one tool-result block per tool use.
type ToolHandler interface {
	HandleToolUse(ctx context.Context, assistant models.Message, conversation []models.Message) (models.Message, error)
}

// ToolExchangeState tracks one bounded tool-use exchange. It is created at
// the start of an invocation, owned exclusively by it, and discarded at
// its end. RecursionsRemaining is initialized once and strictly
// decremented; it is never reset mid-loop.
type ToolExchangeState struct {
	// PendingToolUse is true while the latest reply requests tools.
	PendingToolUse bool
	// AccumulatedText collects the text of every reply in the exchange.
	AccumulatedText []string
	// RecursionsRemaining counts model rounds still allowed.
	RecursionsRemaining int
}

// Text joins the accumulated reply text.
func (s *ToolExchangeState) Text() string {
	return strings.Join(s.AccumulatedText, "")
}

// RunToolLoop drives the bounded tool-use state machine: invoke the model,
// and while the reply requests tools, resolve them through the handler,
// extend the working conversation with both halves of the tool exchange,
// and re-invoke. The model is invoked at most maxRecursions times; when
// the bound is exhausted the last available reply is returned rather than
// an error.
func RunToolLoop(ctx context.Context, conversation []models.Message, round RoundFunc, handler ToolHandler, maxRecursions int) (models.Message, error) {
	if maxRecursions < 1 {
		maxRecursions = DefaultToolMaxRecursions
	}

	working := make([]models.Message, len(conversation))
	copy(working, conversation)

	state := &ToolExchangeState{RecursionsRemaining: maxRecursions}
	var last models.Message

	for state.RecursionsRemaining > 0 {
		if err := ctx.Err(); err != nil {
			return models.Message{}, err
		}
		state.RecursionsRemaining--

		reply, err := round(ctx, working)
		if err != nil {
			return models.Message{}, err
		}
		last = reply
		state.AccumulatedText = append(state.AccumulatedText, reply.Text())
		state.PendingToolUse = reply.HasToolUse()

		if !state.PendingToolUse {
			return reply, nil
		}
		if state.RecursionsRemaining == 0 {
			break
		}

		result, err := handler.HandleToolUse(ctx, reply, working)
		if err != nil {
			return models.Message{}, err
		}
		if err := models.ValidateExchange([]models.Message{reply, result}); err != nil {
			return models.Message{}, err
		}
		working = append(working, reply, result)
	}

	log.Printf("[agent] %v after %d rounds, returning last reply", ErrToolRecursionExhausted, maxRecursions)
	return last, nil
}
