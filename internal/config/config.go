// Package config holds the runtime settings shared by cmd/server and
// cmd/reminder.
//
// Settings are layered, later layers winning:
//
//	defaults → environment variables → command-line flags
//
// Every setting has both forms, e.g. PORT / -port and DB_DRIVER / -db-driver.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime settings.
type Config struct {
	Port int

	DBDriver    string // "sqlite" or "postgres"
	DBPath      string // sqlite file, or ":memory:"
	DatabaseURL string // postgres DSN

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	// EphemeralSecret is set when no secret was configured and Finish
	// generated one. Sessions then end when the process restarts.
	EphemeralSecret bool

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	SendGridAPIKey string
	MailFrom       string

	LogLevel slog.Level
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Port:       8080,
		DBDriver:   DriverSQLite,
		DBPath:     "data/tasks.db",
		SessionTTL: 24 * time.Hour,
		MailFrom:   "noreply@localhost",
		LogLevel:   slog.LevelInfo,
	}
}

// Load builds the server configuration from getenv and args (without the
// program name), then fills derived values and validates the result.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finish fills values that depend on other settings and validates. Call it
// after ApplyEnv and flag parsing.
func (c *Config) Finish() error {
	if c.GitHubCallbackURL == "" {
		c.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Port)
	}

	if c.SessionSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("config: generating session secret: %w", err)
		}
		c.SessionSecret = hex.EncodeToString(buf)
		c.EphemeralSecret = true
	}

	return c.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q (want %q or %q)", c.DBDriver, DriverSQLite, DriverPostgres)
	}

	if len(c.SessionSecret) < 16 {
		return errors.New("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive, got %s", c.SessionTTL)
	}

	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return errors.New("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// NewLogger builds the process logger: text output at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
