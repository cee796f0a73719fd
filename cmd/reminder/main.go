// Command reminder mails every user a list of their tasks due on one day.
// It is meant to run once a day from cron or a scheduler:
//
//	DB_PATH=data/tasks.db SENDGRID_API_KEY=... reminder            # tomorrow (UTC)
//	reminder -day 2026-03-01
//
// It reads the same environment and flags as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sakif/task-manager/internal/config"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/server"
	"github.com/sakif/task-manager/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "reminder:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Default()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}

	fs := flag.NewFlagSet("reminder", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	dayFlag := fs.String("day", "", "due date to remind about, YYYY-MM-DD (default: tomorrow, UTC)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Finish(); err != nil {
		return err
	}

	day, err := reminderDay(*dayFlag, time.Now())
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reminders := service.NewReminderService(store.Tasks, store.Users, server.NewMailer(cfg, logger), logger)
	sent, err := reminders.SendDueReminders(ctx, day)
	if err != nil {
		return err
	}

	logger.Info("reminders sent",
		slog.String("day", day.Format(model.DateLayout)),
		slog.Int("users", sent),
	)
	return nil
}

// reminderDay parses -day, defaulting to the day after now in UTC.
func reminderDay(flagValue string, now time.Time) (time.Time, error) {
	if flagValue != "" {
		return model.ParseDate(flagValue)
	}
	y, m, d := now.UTC().AddDate(0, 0, 1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
