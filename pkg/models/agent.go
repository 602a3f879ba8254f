package models

import "strings"

// Capabilities declares the static behaviors of an agent. These are fixed
// at registration time, never per call.
type Capabilities struct {
	// Streaming indicates the agent yields text fragments lazily instead
	// of a single message.
	Streaming bool `json:"streaming" yaml:"streaming"`
	// UsesTools indicates the agent may request tool invocations mid-turn.
	UsesTools bool `json:"uses_tools" yaml:"uses_tools"`
	// UsesRetrieval indicates the agent prepends retrieved context before
	// answering.
	UsesRetrieval bool `json:"uses_retrieval" yaml:"uses_retrieval"`
}

// AgentInfo is the registration record for an agent. The ID is derived
// from the name and unique within a registry.
type AgentInfo struct {
	// ID is the unique identifier, derived from Name.
	ID string `json:"id"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Description summarizes what the agent handles; classifiers use it
	// to route input.
	Description string `json:"description"`
	// Capabilities are the agent's static behaviors.
	Capabilities Capabilities `json:"capabilities"`
}

// DeriveAgentID converts an agent name to its canonical identifier:
// lowercase, with runs of non-alphanumeric characters collapsed to a
// single hyphen.
func DeriveAgentID(name string) string {
	var sb strings.Builder
	lastHyphen := true // trim leading separators
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
