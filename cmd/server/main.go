// Package main is the entry point for the task manager web server.
//
// main only reads configuration, builds the logger and hands over to
// internal/server. Settings come from the environment and flags; see
// internal/config for the full list.
//
//	SESSION_SECRET=$(openssl rand -hex 32) go run ./cmd/server -port 8080
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/task-manager/internal/config"
	"github.com/sakif/task-manager/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	logger := cfg.NewLogger(os.Stdout)

	if cfg.EphemeralSecret {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}
	if !cfg.GitHubEnabled() {
		logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set)")
	}

	// The sqlite driver creates the file but not its directory.
	if cfg.DBDriver == config.DriverSQLite && cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
