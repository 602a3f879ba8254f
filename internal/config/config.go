// Package config handles configuration loading and management for Switchboard.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Switchboard.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	History   HistoryConfig   `mapstructure:"history"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Tools     ToolsConfig     `mapstructure:"tools"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// RoutingConfig holds selection and fallback policy.
type RoutingConfig struct {
	// Classifier selects the classifier implementation: "model" or "keyword".
	Classifier string `mapstructure:"classifier"`
	// MaxRetries bounds classification attempts per turn.
	MaxRetries int `mapstructure:"max_retries"`
	// UseDefaultAgent routes unclassifiable turns to DefaultAgent.
	UseDefaultAgent bool `mapstructure:"use_default_agent"`
	// DefaultAgent is the fallback agent's id or name.
	DefaultAgent string `mapstructure:"default_agent"`
	// NoAgentMessage is the rejection reply text.
	NoAgentMessage string `mapstructure:"no_agent_message"`
	// ErrorMessage is the reply text when an agent fails.
	ErrorMessage string `mapstructure:"error_message"`
}

// HistoryConfig holds conversation history settings.
type HistoryConfig struct {
	// Backend selects the store: "memory" or "sqlite".
	Backend string `mapstructure:"backend"`
	// Path is the sqlite database file, ignored for the memory backend.
	Path string `mapstructure:"path"`
	// MaxPairs bounds stored exchanges per (user, session, agent).
	MaxPairs int `mapstructure:"max_pairs"`
}

// ToolsConfig holds tool-use settings.
type ToolsConfig struct {
	// MaxRecursions bounds tool rounds per turn for agents that don't set
	// their own bound. Zero means the built-in default.
	MaxRecursions int `mapstructure:"max_recursions"`
}

// TimeoutsConfig holds per-call timeout settings.
type TimeoutsConfig struct {
	Classifier time.Duration `mapstructure:"classifier"`
	Agent      time.Duration `mapstructure:"agent"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.switchboard.yaml in current directory or parent)
// 3. User config (~/.config/switchboard/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("routing.classifier", cfg.Routing.Classifier)
	v.Set("routing.max_retries", cfg.Routing.MaxRetries)
	v.Set("routing.use_default_agent", cfg.Routing.UseDefaultAgent)
	v.Set("routing.default_agent", cfg.Routing.DefaultAgent)
	v.Set("routing.no_agent_message", cfg.Routing.NoAgentMessage)
	v.Set("routing.error_message", cfg.Routing.ErrorMessage)
	v.Set("history.backend", cfg.History.Backend)
	v.Set("history.path", cfg.History.Path)
	v.Set("history.max_pairs", cfg.History.MaxPairs)
	v.Set("timeouts.classifier", cfg.Timeouts.Classifier.String())
	v.Set("timeouts.agent", cfg.Timeouts.Agent.String())
	v.Set("tools.max_recursions", cfg.Tools.MaxRecursions)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("routing.classifier", "model")
	v.SetDefault("routing.max_retries", 3)
	v.SetDefault("routing.use_default_agent", false)
	v.SetDefault("routing.default_agent", "")
	v.SetDefault("routing.no_agent_message", "")
	v.SetDefault("routing.error_message", "")

	v.SetDefault("history.backend", "memory")
	v.SetDefault("history.path", "")
	v.SetDefault("history.max_pairs", 10)

	v.SetDefault("timeouts.classifier", "30s")
	v.SetDefault("timeouts.agent", "5m")

	v.SetDefault("tools.max_recursions", 0)
}

// getUserConfigDir returns the XDG config directory for Switchboard.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "switchboard")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "switchboard")
	}
	return filepath.Join(home, ".config", "switchboard")
}

// findProjectConfig searches for .switchboard.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".switchboard.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Routing: RoutingConfig{
			Classifier: "model",
			MaxRetries: 3,
		},
		History: HistoryConfig{
			Backend:  "memory",
			MaxPairs: 10,
		},
		Timeouts: TimeoutsConfig{
			Classifier: 30 * time.Second,
			Agent:      5 * time.Minute,
		},
	}
}
