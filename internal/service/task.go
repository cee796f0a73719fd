// Package service contains the business rules of the task manager.
//
// LAYERS:
//
//	Handler (HTTP)   → parses forms, picks a page or redirect
//	Service          → validates input, checks sessions and ownership
//	Repository (SQL) → reads and writes rows
//
// Services take the principal as an explicit *model.User argument. Nothing
// here reads a request, a cookie or a global "current user", so the same
// calls work from a handler, a test or the reminder job.
//
// Errors are apperror values (ErrValidation, ErrNotFound, ErrForbidden, ...);
// the handler decides what each one looks like over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// TaskInput is the user-editable part of a task, as submitted by a form.
// DueDate is the raw "YYYY-MM-DD" string; parsing it is part of validation.
type TaskInput struct {
	Title       string
	Description string
	DueDate     string
}

// TaskService runs the task lifecycle: list, create, view, edit, delete.
type TaskService struct {
	tasks  repository.TaskRepository
	logger *slog.Logger
}

func NewTaskService(tasks repository.TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, logger: logger}
}

// ListOwned returns the principal's tasks, oldest first. Other users' tasks
// are never included.
func (s *TaskService) ListOwned(ctx context.Context, principal *model.User) ([]model.Task, error) {
	user, err := RequireAuthenticated(principal)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for user %d: %w", user.ID, err)
	}
	return tasks, nil
}

// Create stores a new Pending task owned by the principal.
func (s *TaskService) Create(ctx context.Context, principal *model.User, in TaskInput) (*model.Task, error) {
	user, err := RequireAuthenticated(principal)
	if err != nil {
		return nil, err
	}

	title, description, due, err := validateTaskInput(in)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		Status:      model.StatusPending,
		DueDate:     due,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("taskID", task.ID),
		slog.Int64("userID", user.ID),
	)
	return task, nil
}

// Get returns one task if the principal owns it.
func (s *TaskService) Get(ctx context.Context, principal *model.User, id int64) (*model.Task, error) {
	user, err := RequireAuthenticated(principal)
	if err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, user, id)
}

// Edit overwrites title, description and due date. Status, owner, id and
// creation time stay as they were. The ownership check runs before input
// validation, so a non-owner always gets Forbidden.
func (s *TaskService) Edit(ctx context.Context, principal *model.User, id int64, in TaskInput) (*model.Task, error) {
	user, err := RequireAuthenticated(principal)
	if err != nil {
		return nil, err
	}

	task, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	title, description, due, err := validateTaskInput(in)
	if err != nil {
		return nil, err
	}

	task.Title = title
	task.Description = description
	task.DueDate = due

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}

	s.logger.Info("task updated",
		slog.Int64("taskID", task.ID),
		slog.Int64("userID", user.ID),
	)
	return task, nil
}

// Delete removes the task permanently.
func (s *TaskService) Delete(ctx context.Context, principal *model.User, id int64) error {
	user, err := RequireAuthenticated(principal)
	if err != nil {
		return err
	}

	if _, err := s.loadOwned(ctx, user, id); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}

	s.logger.Info("task deleted",
		slog.Int64("taskID", id),
		slog.Int64("userID", user.ID),
	)
	return nil
}

// loadOwned fetches a task and runs the ownership check. NotFound passes
// through untouched so the handler can answer 404.
func (s *TaskService) loadOwned(ctx context.Context, user *model.User, id int64) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading task %d: %w", id, err)
	}

	if err := AuthorizeTaskAccess(user, task); err != nil {
		s.logger.Warn("task access denied",
			slog.Int64("taskID", id),
			slog.Int64("userID", user.ID),
			slog.Int64("ownerID", task.UserID),
		)
		return nil, err
	}
	return task, nil
}

func validateTaskInput(in TaskInput) (title, description string, due time.Time, err error) {
	title = strings.TrimSpace(in.Title)
	description = strings.TrimSpace(in.Description)

	if title == "" {
		return "", "", time.Time{}, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", "", time.Time{}, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", "", time.Time{}, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	}
	if strings.TrimSpace(in.DueDate) == "" {
		return "", "", time.Time{}, apperror.ValidationFailed("due_date", "due date is required")
	}

	due, perr := model.ParseDate(in.DueDate)
	if perr != nil {
		return "", "", time.Time{}, apperror.ValidationFailed("due_date", "due date must be in YYYY-MM-DD format")
	}
	return title, description, due, nil
}
