// Package config loads and validates the SDR engine configuration.
package config

import "time"

// Config is the fully resolved engine configuration.
type Config struct {
	Gateway       *GatewayConfig       `yaml:"gateway"`
	Webhook       *WebhookConfig       `yaml:"webhook"`
	Session       *SessionConfig       `yaml:"session"`
	Buffer        *BufferConfig        `yaml:"buffer"`
	Humanizer     *HumanizerConfig     `yaml:"humanizer"`
	FollowUp      *FollowUpConfig      `yaml:"follow_up"`
	Agent         *AgentConfig         `yaml:"agent"`
	Qualification *QualificationConfig `yaml:"qualification"`
	LLM           *LLMConfig           `yaml:"llm"`
	CRM           *CRMConfig           `yaml:"crm"`
	Calendar      *CalendarConfig      `yaml:"calendar"`
	Redis         *RedisConfig         `yaml:"redis"`
}

// GatewayConfig holds outbound WhatsApp gateway wiring.
type GatewayConfig struct {
	URL          string `yaml:"gateway_url"`
	Key          string `yaml:"gateway_key"`
	InstanceName string `yaml:"instance_name"`
}

// WebhookConfig holds inbound webhook authentication.
type WebhookConfig struct {
	Secret       string   `yaml:"webhook_secret"`
	AllowlistIPs []string `yaml:"webhook_allowlist_ips"`
}

// SessionConfig holds the per-phone session lifecycle parameters.
type SessionConfig struct {
	TimeoutMin         int `yaml:"session_timeout_min"`
	IdleWarningMin     int `yaml:"idle_warning_min"`
	MaxDurationHours   int `yaml:"max_session_duration_h"`
	MaxMessages        int `yaml:"max_messages_per_session"`
	SweepIntervalSec   int `yaml:"sweep_interval_sec"`
	RecentMessageLimit int `yaml:"recent_message_limit"`
}

// Timeout returns the inactivity timeout as a duration.
func (c *SessionConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMin) * time.Minute }

// IdleWarning returns the idle-warning threshold as a duration.
func (c *SessionConfig) IdleWarning() time.Duration {
	return time.Duration(c.IdleWarningMin) * time.Minute
}

// MaxDuration returns the hard session ceiling as a duration.
func (c *SessionConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationHours) * time.Hour
}

// SweepInterval returns the background sweeper cadence.
func (c *SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// BufferConfig holds message coalescing parameters.
type BufferConfig struct {
	WindowMs   int `yaml:"buffer_window_ms"`
	MaxPending int `yaml:"max_pending_per_phone"`
	DedupSize  int `yaml:"dedup_cache_size"`
}

// Window returns the coalescing quiet window as a duration.
func (c *BufferConfig) Window() time.Duration { return time.Duration(c.WindowMs) * time.Millisecond }

// HumanizerConfig holds outbound pacing parameters.
type HumanizerConfig struct {
	TypingWPMMin int     `yaml:"typing_wpm_min"`
	TypingWPMMax int     `yaml:"typing_wpm_max"`
	ChunkWordMin int     `yaml:"chunk_word_min"`
	ChunkWordMax int     `yaml:"chunk_word_max"`
	TypoRate     float64 `yaml:"typo_rate"`
}

// FollowUpConfig holds the re-engagement scheduler parameters.
type FollowUpConfig struct {
	FirstDelayMin      int    `yaml:"followup_first_delay_min"`
	SecondDelayHours   int    `yaml:"followup_second_delay_h"`
	ThirdDelayHours    int    `yaml:"followup_third_delay_h"`
	FourthDelayHours   int    `yaml:"followup_fourth_delay_h"`
	PollIntervalSec    int    `yaml:"poll_interval_sec"`
	MaxAttempts        int    `yaml:"max_attempts"`
	BusinessHoursStart string `yaml:"business_hours_start"`
	BusinessHoursEnd   string `yaml:"business_hours_end"`
	BusinessTZ         string `yaml:"business_tz"`
}

// FirstDelay returns the reminder delay as a duration.
func (c *FollowUpConfig) FirstDelay() time.Duration {
	return time.Duration(c.FirstDelayMin) * time.Minute
}

// SecondDelay returns the check-in delay as a duration.
func (c *FollowUpConfig) SecondDelay() time.Duration {
	return time.Duration(c.SecondDelayHours) * time.Hour
}

// ThirdDelay returns the reengagement delay as a duration.
func (c *FollowUpConfig) ThirdDelay() time.Duration {
	return time.Duration(c.ThirdDelayHours) * time.Hour
}

// FourthDelay returns the nurture delay as a duration.
func (c *FollowUpConfig) FourthDelay() time.Duration {
	return time.Duration(c.FourthDelayHours) * time.Hour
}

// PollInterval returns the worker poll cadence.
func (c *FollowUpConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// AgentConfig holds orchestrator policy parameters.
// ReasoningAuto is a pointer so an explicit "false" in YAML survives the merge.
type AgentConfig struct {
	ReasoningAuto  *bool `yaml:"reasoning_auto"`
	MaxToolHops    int   `yaml:"max_tool_hops"`
	LLMTimeoutSec  int   `yaml:"llm_timeout_sec"`
	ToolTimeoutSec int   `yaml:"tool_timeout_sec"`
	TurnBudgetSec  int   `yaml:"turn_budget_sec"`
}

// ReasoningAutoEnabled reports whether automatic deep-reasoning activation is on.
func (c *AgentConfig) ReasoningAutoEnabled() bool {
	return c.ReasoningAuto == nil || *c.ReasoningAuto
}

// LLMTimeout returns the per-call LLM wall timeout.
func (c *AgentConfig) LLMTimeout() time.Duration { return time.Duration(c.LLMTimeoutSec) * time.Second }

// ToolTimeout returns the per-call tool timeout.
func (c *AgentConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSec) * time.Second
}

// TurnBudget returns the overall turn deadline.
func (c *AgentConfig) TurnBudget() time.Duration { return time.Duration(c.TurnBudgetSec) * time.Second }

// QualificationConfig holds bill-value qualification tiers.
type QualificationConfig struct {
	MinBillCommercial  float64 `yaml:"qualification_min_bill_commercial"`
	MinBillResidential float64 `yaml:"qualification_min_bill_residential"`
}

// LLMConfig holds model selection. The API key comes from the environment
// (ANTHROPIC_API_KEY), never from YAML.
type LLMConfig struct {
	Model         string `yaml:"model"`
	FollowUpModel string `yaml:"follow_up_model"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// CRMConfig holds the CRM REST collaborator wiring.
type CRMConfig struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	Pipeline string `yaml:"pipeline"`
}

// CalendarConfig holds the calendar collaborator wiring.
type CalendarConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	CalendarID string `yaml:"calendar_id"`
}

// RedisConfig holds the optional cache/broker wiring. An empty Addr means
// in-process fallbacks are used.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}
