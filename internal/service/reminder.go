package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/notify"
	"github.com/sakif/task-manager/internal/repository"
)

// ReminderService e-mails each user a list of their tasks due on a given
// day. cmd/reminder runs it once per invocation, typically from cron.
type ReminderService struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	mailer notify.Mailer
	logger *slog.Logger
}

func NewReminderService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	mailer notify.Mailer,
	logger *slog.Logger,
) *ReminderService {
	return &ReminderService{tasks: tasks, users: users, mailer: mailer, logger: logger}
}

// SendDueReminders sends one mail per owner with tasks due on day and
// returns how many were sent. A recipient that cannot be loaded or mailed is
// logged and skipped; only a failure to list the due tasks aborts the run.
func (s *ReminderService) SendDueReminders(ctx context.Context, day time.Time) (int, error) {
	due, err := s.tasks.ListDueOn(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("listing tasks due %s: %w", day.Format(model.DateLayout), err)
	}

	// Group by owner, keeping first-seen order.
	var owners []int64
	byOwner := make(map[int64][]model.Task)
	for _, t := range due {
		if _, seen := byOwner[t.UserID]; !seen {
			owners = append(owners, t.UserID)
		}
		byOwner[t.UserID] = append(byOwner[t.UserID], t)
	}

	sent := 0
	for _, ownerID := range owners {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		user, err := s.users.GetByID(ctx, ownerID)
		if err != nil {
			s.logger.Warn("reminder skipped: owner not loadable",
				slog.Int64("userID", ownerID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.mailer.Send(ctx, reminderMessage(user, day, byOwner[ownerID])); err != nil {
			s.logger.Warn("reminder not delivered",
				slog.Int64("userID", ownerID),
				slog.String("error", err.Error()),
			)
			continue
		}
		sent++
	}

	s.logger.Info("reminders sent",
		slog.String("day", day.Format(model.DateLayout)),
		slog.Int("tasks", len(due)),
		slog.Int("sent", sent),
	)
	return sent, nil
}

func reminderMessage(user *model.User, day time.Time, tasks []model.Task) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThese tasks are due on %s:\n\n", user.Username, day.Format(model.DateLayout))
	for _, t := range tasks {
		fmt.Fprintf(&b, "  - %s [%s]\n", t.Title, t.Status)
	}

	subject := fmt.Sprintf("%d task due on %s", len(tasks), day.Format(model.DateLayout))
	if len(tasks) != 1 {
		subject = fmt.Sprintf("%d tasks due on %s", len(tasks), day.Format(model.DateLayout))
	}

	return notify.Message{
		To:      user.Email,
		ToName:  user.Username,
		Subject: subject,
		Body:    b.String(),
	}
}
