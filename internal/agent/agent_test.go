package agent

import (
	"context"
	"errors"
	"testing"
)

func TestFuncAgentProcess(t *testing.T) {
	math := NewFuncAgent("Math", "Answers arithmetic questions", func(ctx context.Context, req Request) (string, error) {
		if req.Input == "2+2" {
			return "4", nil
		}
		return "", errors.New("not arithmetic")
	})

	info := math.Info()
	if info.ID != "math" {
		t.Errorf("ID = %q, want %q", info.ID, "math")
	}
	if info.Capabilities.Streaming {
		t.Error("FuncAgent should not be streaming-capable")
	}

	msg, err := math.Process(context.Background(), Request{Input: "2+2"})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if got := msg.Text(); got != "4" {
		t.Errorf("reply = %q, want %q", got, "4")
	}
}

func TestFuncAgentFailure(t *testing.T) {
	broken := NewFuncAgent("Broken", "always fails", func(ctx context.Context, req Request) (string, error) {
		return "", errors.New("backend offline")
	})

	_, err := broken.Process(context.Background(), Request{Input: "hi"})
	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("Process error type = %T, want *ProcessError", err)
	}
	if perr.AgentName != "Broken" {
		t.Errorf("ProcessError.AgentName = %q, want %q", perr.AgentName, "Broken")
	}
}

func TestFuncAgentEmptyReply(t *testing.T) {
	hollow := NewFuncAgent("Hollow", "returns nothing", func(ctx context.Context, req Request) (string, error) {
		return "", nil
	})

	_, err := hollow.Process(context.Background(), Request{Input: "hi"})
	if !errors.Is(err, ErrEmptyReply) {
		t.Errorf("Process error = %v, want ErrEmptyReply", err)
	}
}
