// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Payroll   PayrollConfig
	Log       LogConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Port               int
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Path string
}

type PayrollConfig struct {
	// StatutoryConfigPath points at a JSON file parsed by the factory package.
	// Empty means built-in defaults.
	StatutoryConfigPath string
	AllowReversal       bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

type SchedulerConfig struct {
	// Interval between draft runs. Zero disables the scheduler.
	Interval time.Duration
}

// Load reads .env files (missing files are fine) and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PAYROLL_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_PORT: %w", err)
	}
	cfg.App = AppConfig{
		Port:               port,
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	cfg.Database = DatabaseConfig{
		Path: getEnv("PAYROLL_DB_PATH", "./data/payroll.db"),
	}

	allowReversal, err := strconv.ParseBool(getEnv("PAYROLL_ALLOW_REVERSAL", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_ALLOW_REVERSAL: %w", err)
	}
	cfg.Payroll = PayrollConfig{
		StatutoryConfigPath: getEnv("PAYROLL_STATUTORY_CONFIG", ""),
		AllowReversal:       allowReversal,
	}

	cfg.Log = LogConfig{
		Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	interval, err := time.ParseDuration(getEnv("PAYROLL_SCHEDULER_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_SCHEDULER_INTERVAL: %w", err)
	}
	cfg.Scheduler = SchedulerConfig{Interval: interval}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("PAYROLL_PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("PAYROLL_DB_PATH is required")
	}
	if c.Scheduler.Interval < 0 {
		return fmt.Errorf("PAYROLL_SCHEDULER_INTERVAL must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the process logger.
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("app", "payroll-engine"))
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
