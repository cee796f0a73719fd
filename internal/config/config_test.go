package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// env turns a map into a getenv function.
func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/tasks.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHubCallbackURL)
	assert.False(t, cfg.GitHubEnabled())
}

func TestLoad_GeneratesEphemeralSecret(t *testing.T) {
	a, err := Load(nil, env(nil))
	require.NoError(t, err)
	b, err := Load(nil, env(nil))
	require.NoError(t, err)

	assert.True(t, a.EphemeralSecret)
	assert.GreaterOrEqual(t, len(a.SessionSecret), 16)
	assert.NotEqual(t, a.SessionSecret, b.SessionSecret)
}

func TestLoad_Environment(t *testing.T) {
	cfg, err := Load(nil, env(map[string]string{
		"PORT":                 "9000",
		"DB_DRIVER":            "postgres",
		"DATABASE_URL":         "postgres://localhost/tasks",
		"SESSION_SECRET":       "0123456789abcdef0123",
		"SESSION_TTL":          "2h",
		"SECURE_COOKIES":       "true",
		"GITHUB_CLIENT_ID":     "id",
		"GITHUB_CLIENT_SECRET": "secret",
		"SENDGRID_API_KEY":     "SG.key",
		"MAIL_FROM":            "tasks@example.com",
		"LOG_LEVEL":            "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/tasks", cfg.DatabaseURL)
	assert.Equal(t, "0123456789abcdef0123", cfg.SessionSecret)
	assert.False(t, cfg.EphemeralSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.SecureCookies)
	assert.True(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:9000/auth/github/callback", cfg.GitHubCallbackURL)
	assert.Equal(t, "SG.key", cfg.SendGridAPIKey)
	assert.Equal(t, "tasks@example.com", cfg.MailFrom)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	cfg, err := Load(
		[]string{"-port", "7000", "-db-path", ":memory:", "-session-ttl", "30m", "-log-level", "warn"},
		env(map[string]string{"PORT": "9000", "DB_PATH": "/tmp/env.db"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
	}{
		{"bad port env", nil, map[string]string{"PORT": "eighty"}, "PORT"},
		{"port out of range", []string{"-port", "70000"}, nil, "port"},
		{"unknown driver", nil, map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"postgres without url", nil, map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"short secret", nil, map[string]string{"SESSION_SECRET": "short"}, "SESSION_SECRET"},
		{"bad ttl", nil, map[string]string{"SESSION_TTL": "forever"}, "SESSION_TTL"},
		{"zero ttl", []string{"-session-ttl", "0s"}, nil, "SESSION_TTL"},
		{"bad secure flag", nil, map[string]string{"SECURE_COOKIES": "maybe"}, "SECURE_COOKIES"},
		{"bad log level", nil, map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"half github config", nil, map[string]string{"GITHUB_CLIENT_ID": "id"}, "GITHUB"},
		{"unknown flag", []string{"-nope"}, nil, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = slog.LevelWarn

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))
}
