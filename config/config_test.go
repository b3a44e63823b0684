package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PAYROLL_PORT", "PAYROLL_DB_PATH", "PAYROLL_STATUTORY_CONFIG", "PAYROLL_ALLOW_REVERSAL",
		"PAYROLL_SCHEDULER_INTERVAL", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, []string{"*"}, cfg.App.CORSAllowedOrigins)
	assert.Equal(t, "./data/payroll.db", cfg.Database.Path)
	assert.True(t, cfg.Payroll.AllowReversal)
	assert.Empty(t, cfg.Payroll.StatutoryConfigPath)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYROLL_PORT", "9090")
	t.Setenv("PAYROLL_DB_PATH", ":memory:")
	t.Setenv("PAYROLL_ALLOW_REVERSAL", "false")
	t.Setenv("PAYROLL_SCHEDULER_INTERVAL", "0s")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.False(t, cfg.Payroll.AllowReversal)
	assert.Zero(t, cfg.Scheduler.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSAllowedOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even to "".
	os.Unsetenv("PAYROLL_PORT")
	os.Unsetenv("LOG_FORMAT")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAYROLL_PORT=7070\nLOG_FORMAT=text\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PAYROLL_PORT")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.App.Port)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PAYROLL_PORT", "not-a-port"},
		{"PAYROLL_PORT", "70000"},
		{"PAYROLL_ALLOW_REVERSAL", "maybe"},
		{"PAYROLL_SCHEDULER_INTERVAL", "-1m"},
		{"LOG_LEVEL", "chatty"},
		{"LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("dropped")
	logger.Warn("kept", "entry_id", "e1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "payroll-engine", line["app"])
	assert.Equal(t, "e1", line["entry_id"])

	level, err := ParseLevel("error")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)
}
