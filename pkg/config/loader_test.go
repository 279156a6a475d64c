package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))
	return dir
}

func TestInitialize_Defaults(t *testing.T) {
	cfg, err := Initialize(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Buffer.WindowMs)
	assert.Equal(t, 3*time.Second, cfg.Buffer.Window())
	assert.Equal(t, 30*time.Minute, cfg.Session.Timeout())
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxDuration())
	assert.Equal(t, 8, cfg.Agent.MaxToolHops)
	assert.True(t, cfg.Agent.ReasoningAutoEnabled())
	assert.Equal(t, float64(4000), cfg.Qualification.MinBillCommercial)
	assert.Equal(t, float64(400), cfg.Qualification.MinBillResidential)
	assert.Equal(t, "08:00", cfg.FollowUp.BusinessHoursStart)
	assert.Equal(t, 30*time.Minute, cfg.FollowUp.FirstDelay())
	assert.Equal(t, 24*time.Hour, cfg.FollowUp.SecondDelay())
}

func TestInitialize_UserOverrides(t *testing.T) {
	dir := writeConfig(t, `
buffer:
  buffer_window_ms: 5000
agent:
  max_tool_hops: 4
gateway:
  gateway_url: https://wa.example.com
  instance_name: solarprime
`)

	cfg, err := Initialize(dir)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Buffer.WindowMs)
	assert.Equal(t, 4, cfg.Agent.MaxToolHops)
	assert.Equal(t, "https://wa.example.com", cfg.Gateway.URL)
	// Untouched sections keep defaults.
	assert.Equal(t, 30, cfg.Session.TimeoutMin)
	assert.Equal(t, 20, cfg.Buffer.MaxPending)
}

func TestInitialize_ReasoningAutoExplicitFalse(t *testing.T) {
	dir := writeConfig(t, `
agent:
  reasoning_auto: false
`)

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Agent.ReasoningAutoEnabled())
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_GATEWAY_KEY", "sekret-123")
	dir := writeConfig(t, `
gateway:
  gateway_key: "{{.TEST_GATEWAY_KEY}}"
`)

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, "sekret-123", cfg.Gateway.Key)
}

func TestInitialize_InvalidYAML(t *testing.T) {
	dir := writeConfig(t, "gateway: [unclosed")
	_, err := Initialize(dir)
	require.Error(t, err)
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "buffer window too small",
			mutate: func(c *Config) { c.Buffer.WindowMs = 10 },
			errMsg: "buffer_window_ms",
		},
		{
			name:   "idle warning above timeout",
			mutate: func(c *Config) { c.Session.IdleWarningMin = 45 },
			errMsg: "idle_warning_min",
		},
		{
			name:   "inverted wpm range",
			mutate: func(c *Config) { c.Humanizer.TypingWPMMax = 10 },
			errMsg: "wpm range",
		},
		{
			name:   "zero tool hops",
			mutate: func(c *Config) { c.Agent.MaxToolHops = 0 },
			errMsg: "max_tool_hops",
		},
		{
			name:   "commercial tier below residential",
			mutate: func(c *Config) { c.Qualification.MinBillCommercial = 100 },
			errMsg: "qualification tiers",
		},
		{
			name:   "bad business hours",
			mutate: func(c *Config) { c.FollowUp.BusinessHoursStart = "25:99" },
			errMsg: "business_hours_start",
		},
		{
			name:   "bad timezone",
			mutate: func(c *Config) { c.FollowUp.BusinessTZ = "Mars/Olympus" },
			errMsg: "business_tz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
