package config

// defaultConfig returns the built-in configuration merged underneath
// whatever the user's obra.yaml supplies, so every key named in §6 has a
// safe value even from an empty file.
func defaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Type:                   "claude-code",
			ResponseTimeoutSeconds: 600,
			BypassPermissions:      false,
		},
		LLM: LLMConfig{
			Type:           "http",
			Temperature:    0.2,
			MaxTokens:      4096,
			TimeoutSeconds: 60,
			CacheSize:      256,
		},
		Orchestration: OrchestrationConfig{
			MaxIterations:           10,
			IterationTimeoutSeconds: 900,
			ConcurrentItems:         1,
		},
		Retry: RetryConfig{
			MaxAttempts:      5,
			BaseDelaySeconds: 0.25,
			MaxDelaySeconds:  10,
			Multiplier:       2.0,
			JitterSeconds:    0.25,
		},
		Decision: DecisionConfig{
			HighConfidence:   0.85,
			MediumConfidence: 0.65,
			AcceptQuality:    0.7,
			RetryCap:         3,
		},
		Dependencies: DependenciesConfig{
			MaxDepth:    32,
			AllowCycles: false,
		},
		Hooks: HooksConfig{
			Slack:     &SlackHookConfig{Enabled: false, TokenEnv: "SLACK_BOT_TOKEN"},
			Telemetry: &TelemetryHookConfig{Enabled: false, ServiceName: "obra", MetricsAddr: ":9090"},
		},
	}
}
