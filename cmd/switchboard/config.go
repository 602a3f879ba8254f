package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/switchboard-dev/switchboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Switchboard configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/switchboard/config.yaml
Project-specific overrides can be placed in .switchboard.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	for _, key := range configKeys {
		fmt.Printf("%s: %s\n", key, configValue(cfg, key))
	}
}

func displayConfigKey(cfg *config.Config, key string) {
	value := configValue(cfg, key)
	if value == "" && !knownConfigKey(key) {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	fmt.Println(value)
}

func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock, err = strconv.ParseBool(value)
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "routing.classifier":
		cfg.Routing.Classifier = value
	case "routing.max_retries":
		cfg.Routing.MaxRetries, err = strconv.Atoi(value)
	case "routing.use_default_agent":
		cfg.Routing.UseDefaultAgent, err = strconv.ParseBool(value)
	case "routing.default_agent":
		cfg.Routing.DefaultAgent = value
	case "routing.no_agent_message":
		cfg.Routing.NoAgentMessage = value
	case "routing.error_message":
		cfg.Routing.ErrorMessage = value
	case "history.backend":
		cfg.History.Backend = value
	case "history.path":
		cfg.History.Path = value
	case "history.max_pairs":
		cfg.History.MaxPairs, err = strconv.Atoi(value)
	case "timeouts.classifier":
		cfg.Timeouts.Classifier, err = time.ParseDuration(value)
	case "timeouts.agent":
		cfg.Timeouts.Agent, err = time.ParseDuration(value)
	case "tools.max_recursions":
		cfg.Tools.MaxRecursions, err = strconv.Atoi(value)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s set to %s\n", key, value)
}

var configKeys = []string{
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"routing.classifier",
	"routing.max_retries",
	"routing.use_default_agent",
	"routing.default_agent",
	"routing.no_agent_message",
	"routing.error_message",
	"history.backend",
	"history.path",
	"history.max_pairs",
	"timeouts.classifier",
	"timeouts.agent",
	"tools.max_recursions",
}

func knownConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

func configValue(cfg *config.Config, key string) string {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)"
		}
		return "****"
	case "anthropic.model":
		return cfg.Anthropic.Model
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock)
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile
	case "routing.classifier":
		return cfg.Routing.Classifier
	case "routing.max_retries":
		return strconv.Itoa(cfg.Routing.MaxRetries)
	case "routing.use_default_agent":
		return strconv.FormatBool(cfg.Routing.UseDefaultAgent)
	case "routing.default_agent":
		return cfg.Routing.DefaultAgent
	case "routing.no_agent_message":
		return cfg.Routing.NoAgentMessage
	case "routing.error_message":
		return cfg.Routing.ErrorMessage
	case "history.backend":
		return cfg.History.Backend
	case "history.path":
		return cfg.History.Path
	case "history.max_pairs":
		return strconv.Itoa(cfg.History.MaxPairs)
	case "timeouts.classifier":
		return cfg.Timeouts.Classifier.String()
	case "timeouts.agent":
		return cfg.Timeouts.Agent.String()
	case "tools.max_recursions":
		return strconv.Itoa(cfg.Tools.MaxRecursions)
	default:
		return ""
	}
}
