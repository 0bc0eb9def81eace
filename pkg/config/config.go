// Package config loads and validates Obra's configuration: a single
// obra.yaml document, environment-variable expanded, deep-merged over
// built-in defaults so every key named in §6 has a safe value even when
// absent from the user's file.
package config

import "time"

// AgentConfig configures the Agent Session plugin (§6 agent.*).
type AgentConfig struct {
	Type                   string `yaml:"type"`
	Workspace              string `yaml:"workspace"`
	ResponseTimeoutSeconds int    `yaml:"response_timeout_seconds"`
	BypassPermissions      bool   `yaml:"bypass_permissions"`
}

// ResponseTimeout is ResponseTimeoutSeconds as a time.Duration.
func (a AgentConfig) ResponseTimeout() time.Duration {
	return time.Duration(a.ResponseTimeoutSeconds) * time.Second
}

// LLMConfig configures the Supervisor LLM Client plugin (§6 llm.*).
type LLMConfig struct {
	Type           string  `yaml:"type"`
	Model          string  `yaml:"model"`
	Endpoint       string  `yaml:"endpoint"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	CacheSize      int     `yaml:"cache_size"`
}

// Timeout is TimeoutSeconds as a time.Duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// OrchestrationConfig configures the Iteration Driver's budgets (§6
// orchestration.*).
type OrchestrationConfig struct {
	MaxIterations           int `yaml:"max_iterations"`
	IterationTimeoutSeconds int `yaml:"iteration_timeout_seconds"`
	ConcurrentItems         int `yaml:"concurrent_items"`
}

// IterationTimeout is IterationTimeoutSeconds as a time.Duration.
func (o OrchestrationConfig) IterationTimeout() time.Duration {
	return time.Duration(o.IterationTimeoutSeconds) * time.Second
}

// RetryConfig configures the Retry Manager's backoff schedule (§6 retry.*).
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	BaseDelaySeconds float64 `yaml:"base_delay_seconds"`
	MaxDelaySeconds  float64 `yaml:"max_delay_seconds"`
	Multiplier       float64 `yaml:"multiplier"`
	JitterSeconds    float64 `yaml:"jitter_seconds"`
}

// DecisionConfig configures the Decision Engine's thresholds (§6 decision.*).
type DecisionConfig struct {
	HighConfidence   float64 `yaml:"high_confidence"`
	MediumConfidence float64 `yaml:"medium_confidence"`
	AcceptQuality    float64 `yaml:"accept_quality"`
	RetryCap         int     `yaml:"retry_cap"`
}

// DependenciesConfig configures the Dependency Resolver (§6 dependencies.*).
type DependenciesConfig struct {
	MaxDepth    int  `yaml:"max_depth"`
	AllowCycles bool `yaml:"allow_cycles"` // must be false; validated in validator.go
}

// DatabaseConfig names the Persistence Store's connection (§6 database.url).
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// HooksConfig configures the built-in Hook Dispatcher hooks.
type HooksConfig struct {
	Slack     *SlackHookConfig     `yaml:"slack,omitempty"`
	Telemetry *TelemetryHookConfig `yaml:"telemetry,omitempty"`
}

// SlackHookConfig configures the Slack notification hook.
type SlackHookConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TokenEnv     string `yaml:"token_env,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	DashboardURL string `yaml:"dashboard_url,omitempty"`
}

// TelemetryHookConfig configures the telemetry-emitter hook.
type TelemetryHookConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name,omitempty"`
	MetricsAddr    string `yaml:"metrics_addr,omitempty"`
	TraceExporter  string `yaml:"trace_exporter,omitempty"` // "stdout" or "" (disabled)
}

// Config is the fully-resolved configuration object Initialize returns.
type Config struct {
	configDir string

	Agent         AgentConfig
	LLM           LLMConfig
	Orchestration OrchestrationConfig
	Retry         RetryConfig
	Decision      DecisionConfig
	Dependencies  DependenciesConfig
	Database      DatabaseConfig
	Hooks         HooksConfig
}

// ConfigDir returns the directory Config was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }
