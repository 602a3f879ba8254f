// Package orchestrator routes user turns to agents: classification,
// dispatch, fallback, and history persistence.
package orchestrator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/switchboard-dev/switchboard/internal/agent"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// Registry holds the agents available for dispatch.
// It provides thread-safe registration and lookup by id or name.
type Registry struct {
	// agents maps agent IDs to agent implementations.
	agents map[string]agent.Agent
	// order preserves registration order for listings.
	order []string
	// defaultID is the fallback agent's id, empty when unset.
	defaultID string
	// mu protects all fields.
	mu sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]agent.Agent),
	}
}

// Register adds an agent to the registry. The agent's derived id must be
// unique; registering a duplicate id is an error.
func (r *Registry) Register(a agent.Agent) error {
	info := a.Info()
	if info.ID == "" {
		return fmt.Errorf("register agent %q: empty id", info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[info.ID]; exists {
		return fmt.Errorf("register agent %q: id %q already registered", info.Name, info.ID)
	}
	r.agents[info.ID] = a
	r.order = append(r.order, info.ID)
	return nil
}

// Get retrieves an agent by id. Returns nil if not registered.
func (r *Registry) Get(agentID string) agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[agentID]
}

// Resolve looks up an agent by name or id, case-insensitively. Classifier
// decisions carry display names, so both must work. Returns nil for
// unknown names.
func (r *Registry) Resolve(name string) agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.agents[name]; ok {
		return a
	}
	if a, ok := r.agents[models.DeriveAgentID(name)]; ok {
		return a
	}
	lower := strings.ToLower(name)
	for _, id := range r.order {
		if strings.ToLower(r.agents[id].Info().Name) == lower {
			return r.agents[id]
		}
	}
	return nil
}

// Infos returns registration records in registration order.
func (r *Registry) Infos() []models.AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]models.AgentInfo, 0, len(r.order))
	for _, id := range r.order {
		infos = append(infos, r.agents[id].Info())
	}
	return infos
}

// SetDefault marks a registered agent as the fallback target.
func (r *Registry) SetDefault(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[agentID]; !ok {
		return fmt.Errorf("set default agent: %q not registered", agentID)
	}
	r.defaultID = agentID
	return nil
}

// Default returns the fallback agent, or nil when none is configured.
func (r *Registry) Default() agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultID == "" {
		return nil
	}
	return r.agents[r.defaultID]
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
