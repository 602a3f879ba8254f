package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentSpec describes one agent in the roster file.
type AgentSpec struct {
	// Name is the agent's display name. Required and unique.
	Name string `yaml:"name"`
	// Description tells the classifier what this agent handles. Required.
	Description string `yaml:"description"`
	// Model overrides the configured default model for this agent.
	Model string `yaml:"model,omitempty"`
	// SystemPrompt is the agent's system prompt.
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	// Streaming enables fragment streaming for this agent.
	Streaming bool `yaml:"streaming,omitempty"`
	// Tools names built-in tools this agent may call.
	Tools []string `yaml:"tools,omitempty"`
	// MaxRecursions bounds tool rounds per turn, zero means the default.
	MaxRecursions int `yaml:"max_recursions,omitempty"`
	// Keywords feed the keyword classifier when it is selected.
	Keywords []string `yaml:"keywords,omitempty"`
}

// AgentsFile is the on-disk agent roster.
type AgentsFile struct {
	Agents []AgentSpec `yaml:"agents"`
	// Default names the fallback agent, optional.
	Default string `yaml:"default,omitempty"`
}

// LoadAgents reads and validates an agent roster from a YAML file.
func LoadAgents(path string) (*AgentsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agents file: %w", err)
	}

	var file AgentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing agents file %s: %w", path, err)
	}

	if err := validateAgents(&file); err != nil {
		return nil, fmt.Errorf("agents file %s: %w", path, err)
	}
	return &file, nil
}

func validateAgents(file *AgentsFile) error {
	if len(file.Agents) == 0 {
		return fmt.Errorf("no agents defined")
	}

	seen := make(map[string]bool)
	for i, spec := range file.Agents {
		if spec.Name == "" {
			return fmt.Errorf("agent %d: name is required", i)
		}
		if spec.Description == "" {
			return fmt.Errorf("agent %q: description is required", spec.Name)
		}
		if seen[spec.Name] {
			return fmt.Errorf("agent %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true
	}

	if file.Default != "" && !seen[file.Default] {
		return fmt.Errorf("default agent %q is not defined", file.Default)
	}
	return nil
}

// DefaultAgents returns a built-in roster used when no agents file exists.
func DefaultAgents() *AgentsFile {
	return &AgentsFile{
		Agents: []AgentSpec{
			{
				Name:         "General",
				Description:  "General conversation and anything no specialist covers",
				SystemPrompt: "You are a helpful general-purpose assistant.",
				Streaming:    true,
			},
			{
				Name:         "Math",
				Description:  "Arithmetic, algebra, and numeric calculations",
				SystemPrompt: "You are a precise math assistant. Use the calculator tool for arithmetic.",
				Tools:        []string{"calculator"},
				Keywords:     []string{"calculate", "sum", "equation", "solve"},
			},
			{
				Name:         "Tech Support",
				Description:  "Troubleshooting devices, networks, and software",
				SystemPrompt: "You are a patient tech support specialist.",
				Streaming:    true,
				Keywords:     []string{"router", "wifi", "crash", "error", "install"},
			},
		},
		Default: "General",
	}
}
