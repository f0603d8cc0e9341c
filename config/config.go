/*
Package config loads the server and engine settings.

PURPOSE:
  Reads a YAML file, applies WFE_* environment overrides, fills defaults
  and validates the result. Durations are written as Go duration strings
  ("15m", "1h").

ENVIRONMENT:
  WFE_ADDR         server.addr
  WFE_DB_PATH      database.path
  WFE_JWT_SECRET   auth.jwt_secret
  WFE_LOG_LEVEL    log.level
  WFE_TIMEZONE     engine.timezone

EXAMPLE:
  server:
    addr: ":8080"
  database:
    path: workforce.db
  auth:
    jwt_secret: change-me
  engine:
    timezone: Europe/Paris
    balance_policy: clamp
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/workforce-engine/leave"
	"github.com/warp/workforce-engine/payroll"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Engine   EngineConfig   `yaml:"engine"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"-"`
	WriteTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw  string        `yaml:"read_timeout"`
	WriteTimeoutRaw string        `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SchedulerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"-"`
	IntervalRaw string        `yaml:"interval"`
}

type EngineConfig struct {
	Timezone                 string          `yaml:"timezone"`
	GracePeriod              time.Duration   `yaml:"-"`
	GracePeriodRaw           string          `yaml:"grace_period"`
	PeriodsMultiplier        int             `yaml:"periods_multiplier"`
	PayPeriodsPerYear        int             `yaml:"pay_periods_per_year"`
	OvertimeMultiplier       string          `yaml:"overtime_multiplier"`
	BalancePolicy            string          `yaml:"balance_policy"`
	BatchWorkers             int             `yaml:"batch_workers"`
	DocumentExpiryWindowDays *int            `yaml:"document_expiry_window_days"`
	PayslipDir               string          `yaml:"payslip_dir"`
	Scheduler                SchedulerConfig `yaml:"scheduler"`

	Location *time.Location `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndNormalize(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path, applies environment overrides and validates. An empty
// path loads the defaults plus overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: file %s not found", path)
			}
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"WFE_ADDR", &c.Server.Addr},
		{"WFE_DB_PATH", &c.Database.Path},
		{"WFE_JWT_SECRET", &c.Auth.JWTSecret},
		{"WFE_LOG_LEVEL", &c.Log.Level},
		{"WFE_TIMEZONE", &c.Engine.Timezone},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.target = v
		}
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	var err error
	if c.Server.ReadTimeout, err = parseDurationDefault(c.Server.ReadTimeoutRaw, 15*time.Second); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if c.Server.WriteTimeout, err = parseDurationDefault(c.Server.WriteTimeoutRaw, 15*time.Second); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}

	if c.Database.Path == "" {
		c.Database.Path = "workforce.db"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "":
		c.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}

	return c.Engine.validateAndNormalize()
}

func (e *EngineConfig) validateAndNormalize() error {
	if e.Timezone == "" {
		e.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return fmt.Errorf("config: engine.timezone: %w", err)
	}
	e.Location = loc

	if e.GracePeriod, err = parseDurationDefault(e.GracePeriodRaw, 15*time.Minute); err != nil {
		return fmt.Errorf("config: engine.grace_period: %w", err)
	}
	if e.GracePeriod < 0 {
		return fmt.Errorf("config: engine.grace_period cannot be negative")
	}

	defaults := payroll.DefaultParams()
	if e.PeriodsMultiplier == 0 {
		e.PeriodsMultiplier = defaults.PeriodsMultiplier
	}
	if e.PayPeriodsPerYear == 0 {
		e.PayPeriodsPerYear = defaults.PayPeriodsPerYear
	}
	if e.OvertimeMultiplier == "" {
		e.OvertimeMultiplier = defaults.OvertimeMultiplier.String()
	}
	if _, err := e.PayrollParams(); err != nil {
		return err
	}

	if e.BalancePolicy == "" {
		e.BalancePolicy = string(leave.PolicyReject)
	}
	if !leave.BalancePolicy(e.BalancePolicy).Valid() {
		return fmt.Errorf("config: engine.balance_policy must be reject or clamp, got %q", e.BalancePolicy)
	}

	if e.BatchWorkers <= 0 {
		e.BatchWorkers = 4
	}
	if e.DocumentExpiryWindowDays == nil {
		days := 30
		e.DocumentExpiryWindowDays = &days
	}
	if *e.DocumentExpiryWindowDays < 0 {
		return fmt.Errorf("config: engine.document_expiry_window_days cannot be negative")
	}
	if e.PayslipDir == "" {
		e.PayslipDir = "payslips"
	}

	if e.Scheduler.Interval, err = parseDurationDefault(e.Scheduler.IntervalRaw, 24*time.Hour); err != nil {
		return fmt.Errorf("config: engine.scheduler.interval: %w", err)
	}
	if e.Scheduler.Interval <= 0 {
		return fmt.Errorf("config: engine.scheduler.interval must be positive")
	}
	return nil
}

// PayrollParams converts the engine settings into payroll.Params.
func (e EngineConfig) PayrollParams() (payroll.Params, error) {
	ot, err := decimal.NewFromString(e.OvertimeMultiplier)
	if err != nil {
		return payroll.Params{}, fmt.Errorf("config: engine.overtime_multiplier: %w", err)
	}
	params := payroll.Params{
		PeriodsMultiplier:  e.PeriodsMultiplier,
		PayPeriodsPerYear:  e.PayPeriodsPerYear,
		OvertimeMultiplier: ot,
	}
	if err := params.Validate(); err != nil {
		return payroll.Params{}, fmt.Errorf("config: %w", err)
	}
	return params, nil
}

// ExpiryWindow returns the document expiry window in days.
func (e EngineConfig) ExpiryWindow() int {
	if e.DocumentExpiryWindowDays == nil {
		return 30
	}
	return *e.DocumentExpiryWindowDays
}

// NewLogger builds the slog logger described by the log section.
func (l LogConfig) NewLogger() *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}
