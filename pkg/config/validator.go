package config

import (
	"fmt"
	"net/url"
	"os"
)

// Validator validates configuration comprehensively with clear error messages
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast - stops at first error)
func (v *Validator) ValidateAll() error {
	if err := v.validateAgent(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}

	if err := v.validateLLM(); err != nil {
		return fmt.Errorf("llm validation failed: %w", err)
	}

	if err := v.validateOrchestration(); err != nil {
		return fmt.Errorf("orchestration validation failed: %w", err)
	}

	if err := v.validateRetry(); err != nil {
		return fmt.Errorf("retry validation failed: %w", err)
	}

	if err := v.validateDecision(); err != nil {
		return fmt.Errorf("decision validation failed: %w", err)
	}

	if err := v.validateDependencies(); err != nil {
		return fmt.Errorf("dependencies validation failed: %w", err)
	}

	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}

	if err := v.validateHooks(); err != nil {
		return fmt.Errorf("hooks validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateAgent() error {
	a := v.cfg.Agent

	if a.Type == "" {
		return NewValidationError("agent", "", "type", fmt.Errorf("required"))
	}
	if a.ResponseTimeoutSeconds <= 0 {
		return NewValidationError("agent", "", "response_timeout_seconds", fmt.Errorf("must be positive, got %d", a.ResponseTimeoutSeconds))
	}

	return nil
}

func (v *Validator) validateLLM() error {
	l := v.cfg.LLM

	if l.Type == "" {
		return NewValidationError("llm", "", "type", fmt.Errorf("required"))
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return NewValidationError("llm", "", "temperature", fmt.Errorf("must be between 0 and 2, got %v", l.Temperature))
	}
	if l.MaxTokens <= 0 {
		return NewValidationError("llm", "", "max_tokens", fmt.Errorf("must be positive, got %d", l.MaxTokens))
	}
	if l.TimeoutSeconds <= 0 {
		return NewValidationError("llm", "", "timeout_seconds", fmt.Errorf("must be positive, got %d", l.TimeoutSeconds))
	}
	if l.CacheSize < 0 {
		return NewValidationError("llm", "", "cache_size", fmt.Errorf("must be non-negative, got %d", l.CacheSize))
	}

	return nil
}

func (v *Validator) validateOrchestration() error {
	o := v.cfg.Orchestration

	if o.MaxIterations < 1 {
		return NewValidationError("orchestration", "", "max_iterations", fmt.Errorf("must be at least 1, got %d", o.MaxIterations))
	}
	if o.IterationTimeoutSeconds <= 0 {
		return NewValidationError("orchestration", "", "iteration_timeout_seconds", fmt.Errorf("must be positive, got %d", o.IterationTimeoutSeconds))
	}
	if o.ConcurrentItems < 1 {
		return NewValidationError("orchestration", "", "concurrent_items", fmt.Errorf("must be at least 1, got %d", o.ConcurrentItems))
	}

	return nil
}

func (v *Validator) validateRetry() error {
	r := v.cfg.Retry

	if r.MaxAttempts < 1 {
		return NewValidationError("retry", "", "max_attempts", fmt.Errorf("must be at least 1, got %d", r.MaxAttempts))
	}
	if r.BaseDelaySeconds <= 0 {
		return NewValidationError("retry", "", "base_delay_seconds", fmt.Errorf("must be positive, got %v", r.BaseDelaySeconds))
	}
	if r.MaxDelaySeconds <= 0 {
		return NewValidationError("retry", "", "max_delay_seconds", fmt.Errorf("must be positive, got %v", r.MaxDelaySeconds))
	}
	if r.BaseDelaySeconds > r.MaxDelaySeconds {
		return NewValidationError("retry", "", "base_delay_seconds", fmt.Errorf("must not exceed max_delay_seconds, got base=%v max=%v", r.BaseDelaySeconds, r.MaxDelaySeconds))
	}
	if r.Multiplier <= 1 {
		return NewValidationError("retry", "", "multiplier", fmt.Errorf("must be greater than 1, got %v", r.Multiplier))
	}
	if r.JitterSeconds < 0 {
		return NewValidationError("retry", "", "jitter_seconds", fmt.Errorf("must be non-negative, got %v", r.JitterSeconds))
	}

	return nil
}

func (v *Validator) validateDecision() error {
	d := v.cfg.Decision

	for _, f := range []struct {
		name string
		val  float64
	}{
		{"high_confidence", d.HighConfidence},
		{"medium_confidence", d.MediumConfidence},
		{"accept_quality", d.AcceptQuality},
	} {
		if f.val < 0 || f.val > 1 {
			return NewValidationError("decision", "", f.name, fmt.Errorf("must be between 0 and 1, got %v", f.val))
		}
	}

	if d.HighConfidence < d.MediumConfidence {
		return NewValidationError("decision", "", "high_confidence", fmt.Errorf("must be >= medium_confidence, got high=%v medium=%v", d.HighConfidence, d.MediumConfidence))
	}
	if d.RetryCap < 0 {
		return NewValidationError("decision", "", "retry_cap", fmt.Errorf("must be non-negative, got %d", d.RetryCap))
	}

	return nil
}

func (v *Validator) validateDependencies() error {
	dep := v.cfg.Dependencies

	if dep.AllowCycles {
		return NewValidationError("dependencies", "", "allow_cycles", fmt.Errorf("must be false: cyclic dependency graphs are not supported"))
	}
	if dep.MaxDepth < 1 {
		return NewValidationError("dependencies", "", "max_depth", fmt.Errorf("must be at least 1, got %d", dep.MaxDepth))
	}

	return nil
}

func (v *Validator) validateDatabase() error {
	db := v.cfg.Database

	if db.URL == "" {
		return NewValidationError("database", "", "url", fmt.Errorf("required"))
	}
	if _, err := url.Parse(db.URL); err != nil {
		return NewValidationError("database", "", "url", fmt.Errorf("not a valid URL: %w", err))
	}

	return nil
}

func (v *Validator) validateHooks() error {
	h := v.cfg.Hooks

	if h.Slack != nil && h.Slack.Enabled {
		if h.Slack.Channel == "" {
			return NewValidationError("hooks", "slack", "channel", fmt.Errorf("required when slack hook is enabled"))
		}
		if h.Slack.TokenEnv == "" {
			return NewValidationError("hooks", "slack", "token_env", fmt.Errorf("required when slack hook is enabled"))
		}
		if os.Getenv(h.Slack.TokenEnv) == "" {
			return NewValidationError("hooks", "slack", "token_env", fmt.Errorf("environment variable %s is not set", h.Slack.TokenEnv))
		}
	}

	if h.Telemetry != nil && h.Telemetry.Enabled {
		if h.Telemetry.ServiceName == "" {
			return NewValidationError("hooks", "telemetry", "service_name", fmt.Errorf("required when telemetry hook is enabled"))
		}
		if h.Telemetry.TraceExporter != "" && h.Telemetry.TraceExporter != "stdout" {
			return NewValidationError("hooks", "telemetry", "trace_exporter", fmt.Errorf("unknown exporter: %s", h.Telemetry.TraceExporter))
		}
	}

	return nil
}
