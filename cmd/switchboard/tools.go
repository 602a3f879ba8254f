package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/internal/agent"
)

// builtinToolset resolves tool names from an agent roster entry to
// implementations. Unknown names are logged and skipped so a roster typo
// does not take the whole agent down.
func builtinToolset(names []string) *agent.Toolset {
	if len(names) == 0 {
		return nil
	}

	ts := agent.NewToolset()
	for _, name := range names {
		switch name {
		case "calculator":
			ts.Register(calculatorDef(), calculatorTool)
		case "current_time":
			ts.Register(currentTimeDef(), currentTimeTool)
		default:
			log.Printf("[switchboard] unknown tool %q in agent roster, skipping", name)
		}
	}
	if ts.Len() == 0 {
		return nil
	}
	return ts
}

func calculatorDef() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "calculator",
			Description: anthropic.String("Perform one arithmetic operation on two numbers"),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{
					"a":  map[string]interface{}{"type": "number", "description": "Left operand"},
					"b":  map[string]interface{}{"type": "number", "description": "Right operand"},
					"op": map[string]interface{}{"type": "string", "enum": []string{"+", "-", "*", "/"}},
				},
			},
		},
	}
}

func calculatorTool(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		A  float64 `json:"a"`
		B  float64 `json:"b"`
		Op string  `json:"op"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid calculator input: %w", err)
	}

	var result float64
	switch args.Op {
	case "+":
		result = args.A + args.B
	case "-":
		result = args.A - args.B
	case "*":
		result = args.A * args.B
	case "/":
		if args.B == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result = args.A / args.B
	default:
		return "", fmt.Errorf("unknown operation %q", args.Op)
	}
	return fmt.Sprintf("%g", result), nil
}

func currentTimeDef() anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        "current_time",
			Description: anthropic.String("Get the current date and time"),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{},
			},
		},
	}
}

func currentTimeTool(ctx context.Context, input json.RawMessage) (string, error) {
	return time.Now().Format(time.RFC1123), nil
}
