package config

// Default returns the built-in configuration. YAML values are merged on top.
func Default() *Config {
	return &Config{
		Gateway: &GatewayConfig{},
		Webhook: &WebhookConfig{},
		Session: &SessionConfig{
			TimeoutMin:         30,
			IdleWarningMin:     20,
			MaxDurationHours:   2,
			MaxMessages:        100,
			SweepIntervalSec:   60,
			RecentMessageLimit: 100,
		},
		Buffer: &BufferConfig{
			WindowMs:   3000,
			MaxPending: 20,
			DedupSize:  1000,
		},
		Humanizer: &HumanizerConfig{
			TypingWPMMin: 45,
			TypingWPMMax: 55,
			ChunkWordMin: 3,
			ChunkWordMax: 15,
			TypoRate:     0.03,
		},
		FollowUp: &FollowUpConfig{
			FirstDelayMin:      30,
			SecondDelayHours:   24,
			ThirdDelayHours:    48,
			FourthDelayHours:   72,
			PollIntervalSec:    60,
			MaxAttempts:        3,
			BusinessHoursStart: "08:00",
			BusinessHoursEnd:   "18:00",
			BusinessTZ:         "America/Sao_Paulo",
		},
		Agent: &AgentConfig{
			ReasoningAuto:  nil,
			MaxToolHops:    8,
			LLMTimeoutSec:  20,
			ToolTimeoutSec: 10,
			TurnBudgetSec:  25,
		},
		Qualification: &QualificationConfig{
			MinBillCommercial:  4000,
			MinBillResidential: 400,
		},
		LLM: &LLMConfig{
			Model:         "claude-sonnet-4-20250514",
			FollowUpModel: "claude-3-5-haiku-20241022",
			MaxTokens:     2048,
		},
		CRM:      &CRMConfig{},
		Calendar: &CalendarConfig{},
		Redis:    &RedisConfig{},
	}
}
