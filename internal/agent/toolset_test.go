package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

func calcToolDef() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "calc",
			Description: anthropic.String("Evaluate a simple arithmetic expression."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"expr": map[string]interface{}{
						"type":        "string",
						"description": "Expression to evaluate",
					},
				},
				Required: []string{"expr"},
			},
		},
	}
}

func TestToolsetHandleToolUse(t *testing.T) {
	ts := NewToolset()
	ts.Register(calcToolDef(), func(ctx context.Context, input json.RawMessage) (string, error) {
		var params struct {
			Expr string `json:"expr"`
		}
		if err := json.Unmarshal(input, &params); err != nil {
			return "", err
		}
		if params.Expr != "2+2" {
			return "", fmt.Errorf("unexpected expr %q", params.Expr)
		}
		return "4", nil
	})

	assistant := models.NewMessage(models.RoleAssistant,
		models.ToolUseBlock("tu_1", "calc", json.RawMessage(`{"expr":"2+2"}`)))

	result, err := ts.HandleToolUse(context.Background(), assistant, nil)
	if err != nil {
		t.Fatalf("HandleToolUse error: %v", err)
	}
	if result.Role != models.RoleUser {
		t.Errorf("result role = %s, want user", result.Role)
	}
	if len(result.Content) != 1 {
		t.Fatalf("result has %d blocks, want 1", len(result.Content))
	}
	block := result.Content[0]
	if block.ToolUseID != "tu_1" || block.Payload != "4" || block.Status != models.ToolResultSuccess {
		t.Errorf("unexpected result block: %+v", block)
	}
}

func TestToolsetUnknownTool(t *testing.T) {
	ts := NewToolset()

	assistant := models.NewMessage(models.RoleAssistant,
		models.ToolUseBlock("tu_1", "nonexistent", json.RawMessage(`{}`)))

	result, err := ts.HandleToolUse(context.Background(), assistant, nil)
	if err != nil {
		t.Fatalf("HandleToolUse error: %v", err)
	}
	if result.Content[0].Status != models.ToolResultError {
		t.Errorf("unknown tool status = %s, want error", result.Content[0].Status)
	}
}

func TestToolsetToolFailure(t *testing.T) {
	ts := NewToolset()
	ts.Register(calcToolDef(), func(ctx context.Context, input json.RawMessage) (string, error) {
		return "", errors.New("division by zero")
	})

	assistant := models.NewMessage(models.RoleAssistant,
		models.ToolUseBlock("tu_1", "calc", json.RawMessage(`{"expr":"1/0"}`)))

	result, err := ts.HandleToolUse(context.Background(), assistant, nil)
	if err != nil {
		t.Fatalf("HandleToolUse error: %v", err)
	}
	block := result.Content[0]
	if block.Status != models.ToolResultError {
		t.Errorf("failed tool status = %s, want error", block.Status)
	}
	if block.Payload != "division by zero" {
		t.Errorf("failed tool payload = %q, want cause message", block.Payload)
	}
}

func TestToolsetNoToolUses(t *testing.T) {
	ts := NewToolset()
	if _, err := ts.HandleToolUse(context.Background(), models.AssistantText("plain"), nil); err == nil {
		t.Error("HandleToolUse accepted a message without tool_use blocks")
	}
}

func TestToolsetMultipleUses(t *testing.T) {
	ts := NewToolset()
	ts.Register(calcToolDef(), func(ctx context.Context, input json.RawMessage) (string, error) {
		return "ok", nil
	})

	assistant := models.NewMessage(models.RoleAssistant,
		models.ToolUseBlock("tu_1", "calc", json.RawMessage(`{}`)),
		models.ToolUseBlock("tu_2", "calc", json.RawMessage(`{}`)))

	result, err := ts.HandleToolUse(context.Background(), assistant, nil)
	if err != nil {
		t.Fatalf("HandleToolUse error: %v", err)
	}
	if len(result.Content) != 2 {
		t.Fatalf("result has %d blocks, want 2", len(result.Content))
	}
	if result.Content[0].ToolUseID != "tu_1" || result.Content[1].ToolUseID != "tu_2" {
		t.Error("tool results not in tool-use order")
	}
}
