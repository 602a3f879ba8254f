package main

import (
	"strings"
	"testing"

	"github.com/switchboard-dev/switchboard/internal/config"
)

func TestBuildOrchestratorRequiresNamedDefault(t *testing.T) {
	// use_default_agent without a default agent name is a config mistake
	// and must fail loudly instead of silently routing without a fallback.
	cfg := config.Default()
	cfg.Anthropic.APIKey = "test-key"
	cfg.Routing.UseDefaultAgent = true

	roster := config.DefaultAgents()
	roster.Default = ""

	_, _, _, _, err := buildOrchestrator(cfg, roster)
	if err == nil {
		t.Fatal("expected an error when use_default_agent is set with no default agent named")
	}
	if !strings.Contains(err.Error(), "use_default_agent") {
		t.Errorf("error = %v, want it to name use_default_agent", err)
	}
}
