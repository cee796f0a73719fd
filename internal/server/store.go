package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/task-manager/internal/config"
	"github.com/sakif/task-manager/internal/notify"
	"github.com/sakif/task-manager/internal/repository"
	"github.com/sakif/task-manager/internal/repository/postgres"
	sqliteRepo "github.com/sakif/task-manager/internal/repository/sqlite"
)

// Store is an opened backend: both repositories plus health and shutdown.
// The server and the reminder job use it the same way whichever driver
// is configured.
type Store struct {
	Users repository.UserRepository
	Tasks repository.TaskRepository

	pinger repository.Pinger
	close  func() error
}

func (s *Store) Ping(ctx context.Context) error { return s.pinger.Ping(ctx) }

func (s *Store) Close() error { return s.close() }

// OpenStore opens and migrates the backend named by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		return &Store{Users: db.Users(), Tasks: db.Tasks(), pinger: db, close: db.Close}, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres database: %w", err)
		}
		return &Store{Users: db.Users(), Tasks: db.Tasks(), pinger: db, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// NewMailer returns the SendGrid relay when an API key is configured and a
// mailer that only logs otherwise.
func NewMailer(cfg *config.Config, logger *slog.Logger) notify.Mailer {
	if cfg.SendGridAPIKey == "" {
		return notify.NewLogMailer(logger)
	}
	return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, logger)
}
