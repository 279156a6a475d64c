package config

import (
	"fmt"
	"time"
)

// validate performs range checks on the resolved configuration.
func validate(cfg *Config) error {
	if cfg.Buffer.WindowMs < 100 || cfg.Buffer.WindowMs > 60000 {
		return fmt.Errorf("buffer_window_ms must be between 100 and 60000, got %d", cfg.Buffer.WindowMs)
	}
	if cfg.Buffer.MaxPending < 1 {
		return fmt.Errorf("max_pending_per_phone must be at least 1, got %d", cfg.Buffer.MaxPending)
	}
	if cfg.Session.TimeoutMin < 1 {
		return fmt.Errorf("session_timeout_min must be at least 1, got %d", cfg.Session.TimeoutMin)
	}
	if cfg.Session.IdleWarningMin >= cfg.Session.TimeoutMin {
		return fmt.Errorf("idle_warning_min (%d) must be below session_timeout_min (%d)",
			cfg.Session.IdleWarningMin, cfg.Session.TimeoutMin)
	}
	if cfg.Humanizer.TypingWPMMin <= 0 || cfg.Humanizer.TypingWPMMax < cfg.Humanizer.TypingWPMMin {
		return fmt.Errorf("typing wpm range [%d, %d] is invalid",
			cfg.Humanizer.TypingWPMMin, cfg.Humanizer.TypingWPMMax)
	}
	if cfg.Humanizer.ChunkWordMin < 1 || cfg.Humanizer.ChunkWordMax < cfg.Humanizer.ChunkWordMin {
		return fmt.Errorf("chunk word range [%d, %d] is invalid",
			cfg.Humanizer.ChunkWordMin, cfg.Humanizer.ChunkWordMax)
	}
	if cfg.Agent.MaxToolHops < 1 || cfg.Agent.MaxToolHops > 32 {
		return fmt.Errorf("max_tool_hops must be between 1 and 32, got %d", cfg.Agent.MaxToolHops)
	}
	if cfg.Qualification.MinBillResidential <= 0 ||
		cfg.Qualification.MinBillCommercial < cfg.Qualification.MinBillResidential {
		return fmt.Errorf("qualification tiers [%v, %v] are invalid",
			cfg.Qualification.MinBillResidential, cfg.Qualification.MinBillCommercial)
	}
	if err := validateBusinessHours(cfg.FollowUp); err != nil {
		return err
	}
	return nil
}

func validateBusinessHours(cfg *FollowUpConfig) error {
	start, err := time.Parse("15:04", cfg.BusinessHoursStart)
	if err != nil {
		return fmt.Errorf("business_hours_start %q is not HH:MM: %w", cfg.BusinessHoursStart, err)
	}
	end, err := time.Parse("15:04", cfg.BusinessHoursEnd)
	if err != nil {
		return fmt.Errorf("business_hours_end %q is not HH:MM: %w", cfg.BusinessHoursEnd, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("business hours start %q must be before end %q",
			cfg.BusinessHoursStart, cfg.BusinessHoursEnd)
	}
	if _, err := time.LoadLocation(cfg.BusinessTZ); err != nil {
		return fmt.Errorf("business_tz %q is not a valid timezone: %w", cfg.BusinessTZ, err)
	}
	return nil
}
