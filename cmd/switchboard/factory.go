package main

import (
	"fmt"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/internal/agent"
	"github.com/switchboard-dev/switchboard/internal/api"
	"github.com/switchboard-dev/switchboard/internal/classifier"
	"github.com/switchboard-dev/switchboard/internal/config"
	"github.com/switchboard-dev/switchboard/internal/history"
	"github.com/switchboard-dev/switchboard/internal/orchestrator"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// loadRoster returns the agent roster: the --agents file when given,
// otherwise the built-in roster.
func loadRoster() (*config.AgentsFile, error) {
	if agentsPath != "" {
		return config.LoadAgents(agentsPath)
	}
	return config.DefaultAgents(), nil
}

// buildOrchestrator assembles the full dispatch pipeline from config: the
// API client, one agent per roster entry, the classifier, the history
// store, and the cancel-signal watcher. The caller owns the returned
// SignalManager and must Close it.
func buildOrchestrator(cfg *config.Config, roster *config.AgentsFile) (*orchestrator.Orchestrator, *orchestrator.Registry, *api.Client, *orchestrator.SignalManager, error) {
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("creating API client: %w", err)
	}

	registry := orchestrator.NewRegistry()
	for _, spec := range roster.Agents {
		maxRecursions := spec.MaxRecursions
		if maxRecursions == 0 {
			maxRecursions = cfg.Tools.MaxRecursions
		}
		a, err := agent.NewModelAgent(agent.ModelAgentConfig{
			Name:          spec.Name,
			Description:   spec.Description,
			SystemPrompt:  spec.SystemPrompt,
			Model:         anthropic.Model(spec.Model),
			Client:        client,
			Streaming:     spec.Streaming,
			Toolset:       builtinToolset(spec.Tools),
			MaxRecursions: maxRecursions,
		})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("building agent %q: %w", spec.Name, err)
		}
		if err := registry.Register(a); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	cls, err := buildClassifier(cfg, client, registry, roster)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithMaxRetries(cfg.Routing.MaxRetries),
		orchestrator.WithMaxPairsPerAgent(cfg.History.MaxPairs),
		orchestrator.WithClassifierTimeout(cfg.Timeouts.Classifier),
		orchestrator.WithAgentTimeout(cfg.Timeouts.Agent),
	}
	if cfg.Routing.NoAgentMessage != "" {
		opts = append(opts, orchestrator.WithNoAgentMessage(cfg.Routing.NoAgentMessage))
	}
	if cfg.Routing.ErrorMessage != "" {
		opts = append(opts, orchestrator.WithErrorMessage(cfg.Routing.ErrorMessage))
	}

	defaultName := cfg.Routing.DefaultAgent
	if defaultName == "" {
		defaultName = roster.Default
	}
	if cfg.Routing.UseDefaultAgent && defaultName == "" {
		return nil, nil, nil, nil, fmt.Errorf("routing.use_default_agent is set but no default agent is named (set routing.default_agent or a roster default)")
	}
	if defaultName != "" {
		fallback := registry.Resolve(defaultName)
		if fallback == nil {
			return nil, nil, nil, nil, fmt.Errorf("default agent %q is not in the roster", defaultName)
		}
		if err := registry.SetDefault(fallback.Info().ID); err != nil {
			return nil, nil, nil, nil, err
		}
		opts = append(opts, orchestrator.WithUseDefaultAgent(cfg.Routing.UseDefaultAgent || roster.Default != ""))
	}

	signals, err := orchestrator.NewSignalManager(filepath.Dir(config.GetUserConfigPath()))
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("starting signal watcher: %w", err)
	}
	opts = append(opts, orchestrator.WithSignals(signals))

	orch, err := orchestrator.New(cls, registry, store, opts...)
	if err != nil {
		signals.Close()
		return nil, nil, nil, nil, err
	}
	return orch, registry, client, signals, nil
}

func buildClassifier(cfg *config.Config, client *api.Client, registry *orchestrator.Registry, roster *config.AgentsFile) (classifier.Classifier, error) {
	switch cfg.Routing.Classifier {
	case "", "model":
		return classifier.NewModelClassifier(classifier.ModelClassifierConfig{
			Client: client,
			Resolver: func(name string) *models.AgentInfo {
				if a := registry.Resolve(name); a != nil {
					info := a.Info()
					return &info
				}
				return nil
			},
			Roster: registry.Infos,
		})
	case "keyword":
		rules := make([]classifier.KeywordRule, 0, len(roster.Agents))
		for _, spec := range roster.Agents {
			if len(spec.Keywords) == 0 {
				continue
			}
			a := registry.Resolve(spec.Name)
			if a == nil {
				continue
			}
			rules = append(rules, classifier.KeywordRule{
				Agent:    a.Info(),
				Keywords: spec.Keywords,
			})
		}
		if len(rules) == 0 {
			return nil, fmt.Errorf("keyword classifier selected but no agent has keywords")
		}
		return classifier.NewKeywordClassifier(rules), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q (want model or keyword)", cfg.Routing.Classifier)
	}
}

func buildStore(cfg *config.Config) (history.Store, error) {
	switch cfg.History.Backend {
	case "", "memory":
		return history.NewMemoryStore(), nil
	case "sqlite":
		if cfg.History.Path == "" {
			return nil, fmt.Errorf("history.path is required for the sqlite backend")
		}
		return history.OpenSQLite(cfg.History.Path)
	default:
		return nil, fmt.Errorf("unknown history backend %q (want memory or sqlite)", cfg.History.Backend)
	}
}
