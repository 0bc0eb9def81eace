package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// obraYAMLConfig mirrors obra.yaml's top-level shape. Every section is a
// pointer so an absent section leaves the built-in default untouched by
// mergo.Merge's zero-value check.
type obraYAMLConfig struct {
	Agent         *AgentConfig         `yaml:"agent"`
	LLM           *LLMConfig           `yaml:"llm"`
	Orchestration *OrchestrationConfig `yaml:"orchestration"`
	Retry         *RetryConfig         `yaml:"retry"`
	Decision      *DecisionConfig      `yaml:"decision"`
	Dependencies  *DependenciesConfig  `yaml:"dependencies"`
	Database      *DatabaseConfig      `yaml:"database"`
	Hooks         *HooksConfig         `yaml:"hooks"`
}

// Initialize loads obra.yaml from configDir, merges it over the built-in
// defaults (user values override), and validates the result. This is the
// primary entry point for configuration loading, mirroring the teacher's
// Initialize(ctx, configDir) shape.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"agent_type", cfg.Agent.Type, "llm_type", cfg.LLM.Type, "max_iterations", cfg.Orchestration.MaxIterations)
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "obra.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}
	data = ExpandEnv(data)

	var user obraYAMLConfig
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	cfg := defaultConfig()
	cfg.configDir = configDir

	if user.Agent != nil {
		if err := mergo.Merge(&cfg.Agent, *user.Agent, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge agent config: %w", err)
		}
	}
	if user.LLM != nil {
		if err := mergo.Merge(&cfg.LLM, *user.LLM, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge llm config: %w", err)
		}
	}
	if user.Orchestration != nil {
		if err := mergo.Merge(&cfg.Orchestration, *user.Orchestration, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge orchestration config: %w", err)
		}
	}
	if user.Retry != nil {
		if err := mergo.Merge(&cfg.Retry, *user.Retry, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge retry config: %w", err)
		}
	}
	if user.Decision != nil {
		if err := mergo.Merge(&cfg.Decision, *user.Decision, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge decision config: %w", err)
		}
	}
	if user.Dependencies != nil {
		if err := mergo.Merge(&cfg.Dependencies, *user.Dependencies, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge dependencies config: %w", err)
		}
	}
	if user.Database != nil {
		cfg.Database = *user.Database
	}
	if user.Hooks != nil {
		if err := mergeHooks(&cfg.Hooks, user.Hooks); err != nil {
			return nil, fmt.Errorf("merge hooks config: %w", err)
		}
	}

	return cfg, nil
}
