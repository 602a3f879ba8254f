package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAgents(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing agents file: %v", err)
	}
	return path
}

func TestLoadAgents(t *testing.T) {
	path := writeAgents(t, `
agents:
  - name: Math
    description: arithmetic and algebra
    tools: [calculator]
    keywords: [calculate, sum]
  - name: Tech Support
    description: device troubleshooting
    streaming: true
    system_prompt: You are a tech support specialist.
default: Math
`)

	file, err := LoadAgents(path)
	if err != nil {
		t.Fatalf("LoadAgents: %v", err)
	}

	if len(file.Agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(file.Agents))
	}
	math := file.Agents[0]
	if math.Name != "Math" || len(math.Tools) != 1 || math.Tools[0] != "calculator" {
		t.Errorf("math spec = %+v", math)
	}
	tech := file.Agents[1]
	if !tech.Streaming || tech.SystemPrompt == "" {
		t.Errorf("tech spec = %+v", tech)
	}
	if file.Default != "Math" {
		t.Errorf("default = %q, want Math", file.Default)
	}
}

func TestLoadAgentsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty roster",
			content: "agents: []",
			wantErr: "no agents defined",
		},
		{
			name: "missing name",
			content: `
agents:
  - description: something
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
agents:
  - name: Math
`,
			wantErr: "description is required",
		},
		{
			name: "duplicate name",
			content: `
agents:
  - name: Math
    description: one
  - name: Math
    description: two
`,
			wantErr: "duplicate name",
		},
		{
			name: "unknown default",
			content: `
agents:
  - name: Math
    description: one
default: Billing
`,
			wantErr: "not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAgents(writeAgents(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultAgents(t *testing.T) {
	file := DefaultAgents()
	if err := validateAgents(file); err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}
	if file.Default == "" {
		t.Error("default roster should name a default agent")
	}
}
