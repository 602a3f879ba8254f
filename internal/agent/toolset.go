package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// ToolFunc executes one tool invocation. The input is the raw JSON the
// model supplied for the call.
type ToolFunc func(ctx context.Context, input json.RawMessage) (string, error)

// Toolset maps tool names to local Go functions and satisfies ToolHandler.
// It also carries the schema definitions advertised to the model.
type Toolset struct {
	fns  map[string]ToolFunc
	defs []anthropic.ToolUnionParam
}

// NewToolset creates an empty toolset.
func NewToolset() *Toolset {
	return &Toolset{fns: make(map[string]ToolFunc)}
}

// Register adds a tool definition and its implementation. The definition's
// name must match the name the model will call.
func (t *Toolset) Register(def anthropic.ToolUnionParam, fn ToolFunc) {
	if def.OfTool != nil {
		t.fns[def.OfTool.Name] = fn
	}
	t.defs = append(t.defs, def)
}

// Definitions returns the tool schemas to advertise on model calls.
func (t *Toolset) Definitions() []anthropic.ToolUnionParam {
	return t.defs
}

// Len returns the number of registered tools.
func (t *Toolset) Len() int {
	return len(t.fns)
}

// HandleToolUse implements ToolHandler: it executes every tool-use block
// in the assistant message and returns one user-side message carrying the
// results. Unknown tools and execution failures become error-status
// results rather than hard failures, so the model can recover.
func (t *Toolset) HandleToolUse(ctx context.Context, assistant models.Message, conversation []models.Message) (models.Message, error) {
	uses := assistant.ToolUses()
	if len(uses) == 0 {
		return models.Message{}, fmt.Errorf("no tool_use blocks in assistant message")
	}

	blocks := make([]models.ContentBlock, 0, len(uses))
	for _, use := range uses {
		fn, ok := t.fns[use.Name]
		if !ok {
			blocks = append(blocks, models.ToolResultBlock(use.ID,
				fmt.Sprintf("unknown tool: %s", use.Name), models.ToolResultError))
			continue
		}

		payload, err := fn(ctx, use.Input)
		if err != nil {
			blocks = append(blocks, models.ToolResultBlock(use.ID, err.Error(), models.ToolResultError))
			continue
		}
		blocks = append(blocks, models.ToolResultBlock(use.ID, payload, models.ToolResultSuccess))
	}

	return models.NewMessage(models.RoleUser, blocks...), nil
}
