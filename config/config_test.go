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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `server:
  addr: ":9090"
  read_timeout: "5s"
database:
  path: /tmp/wfe.db
auth:
  jwt_secret: s3cret
log:
  level: debug
  format: json
engine:
  timezone: Europe/Paris
  grace_period: "10m"
  periods_multiplier: 4
  pay_periods_per_year: 12
  overtime_multiplier: "2"
  balance_policy: clamp
  batch_workers: 8
  document_expiry_window_days: 0
  scheduler:
    enabled: true
    interval: "1h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/tmp/wfe.db", cfg.Database.Path)
	assert.Equal(t, "Europe/Paris", cfg.Engine.Location.String())
	assert.Equal(t, 10*time.Minute, cfg.Engine.GracePeriod)
	assert.Equal(t, "clamp", cfg.Engine.BalancePolicy)
	assert.Equal(t, 0, cfg.Engine.ExpiryWindow(), "explicit zero window is kept")
	assert.True(t, cfg.Engine.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Engine.Scheduler.Interval)

	params, err := cfg.Engine.PayrollParams()
	require.NoError(t, err)
	assert.Equal(t, 4, params.PeriodsMultiplier)
	assert.Equal(t, 12, params.PayPeriodsPerYear)
	assert.Equal(t, "2", params.OvertimeMultiplier.String())
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "workforce.db", cfg.Database.Path)
	assert.Equal(t, time.UTC, cfg.Engine.Location)
	assert.Equal(t, 15*time.Minute, cfg.Engine.GracePeriod)
	assert.Equal(t, "reject", cfg.Engine.BalancePolicy)
	assert.Equal(t, 4, cfg.Engine.BatchWorkers)
	assert.Equal(t, 30, cfg.Engine.ExpiryWindow())
	assert.Equal(t, "payslips", cfg.Engine.PayslipDir)

	params, err := cfg.Engine.PayrollParams()
	require.NoError(t, err)
	assert.Equal(t, 2, params.PeriodsMultiplier)
	assert.Equal(t, 26, params.PayPeriodsPerYear)
	assert.Equal(t, "1.5", params.OvertimeMultiplier.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown timezone", "engine:\n  timezone: Mars/Olympus\n"},
		{"bad balance policy", "engine:\n  balance_policy: borrow\n"},
		{"bad grace period", "engine:\n  grace_period: soon\n"},
		{"negative grace period", "engine:\n  grace_period: \"-1m\"\n"},
		{"bad overtime multiplier", "engine:\n  overtime_multiplier: lots\n"},
		{"negative pay periods", "engine:\n  pay_periods_per_year: -1\n"},
		{"bad log level", "log:\n  level: chatty\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestApplyEnv_OverridesFile(t *testing.T) {
	cfg := Config{Server: ServerConfig{Addr: ":1"}, Engine: EngineConfig{Timezone: "UTC"}}
	env := map[string]string{
		"WFE_ADDR":       ":2",
		"WFE_TIMEZONE":   "Asia/Tokyo",
		"WFE_JWT_SECRET": "from-env",
		"WFE_DB_PATH":    "",
	}
	cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, ":2", cfg.Server.Addr)
	assert.Equal(t, "Asia/Tokyo", cfg.Engine.Timezone)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Database.Path, "empty variables are ignored")
}

func TestLoad_EnvWithoutFile(t *testing.T) {
	t.Setenv("WFE_DB_PATH", ":memory:")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.Path)
}
