package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/repository"
)

var _ repository.TaskRepository = (*TaskStore)(nil)

// TaskStore is the PostgreSQL task store.
type TaskStore struct {
	conn *sql.DB
}

const taskColumns = `id, user_id, title, description, status, due_date, created_at`

func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	if task.Status == "" {
		task.Status = model.StatusPending
	}

	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status, due_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		task.UserID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.DueDateString(),
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: creating task: %w", err)
	}
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting task %d: %w", id, err)
	}
	return task, nil
}

func (s *TaskStore) ListByOwner(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.list(ctx, `WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *TaskStore) ListDueOn(ctx context.Context, day time.Time) ([]model.Task, error) {
	return s.list(ctx, `WHERE due_date = $1 ORDER BY user_id, id`, day.Format(model.DateLayout))
}

// Update overwrites title, description and due date only.
func (s *TaskStore) Update(ctx context.Context, task *model.Task) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, due_date = $3
		 WHERE id = $4`,
		task.Title,
		nullString(task.Description),
		task.DueDateString(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating task %d: %w", task.ID, err)
	}
	return expectOneRow(result, task.ID)
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting task %d: %w", id, err)
	}
	return expectOneRow(result, id)
}

func (s *TaskStore) list(ctx context.Context, where string, args ...any) ([]model.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating tasks: %w", err)
	}
	return tasks, nil
}

func expectOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*model.Task, error) {
	var (
		t           model.Task
		description sql.NullString
		due         time.Time
	)
	if err := sc.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Status, &due, &t.CreatedAt); err != nil {
		return nil, err
	}
	// DATE comes back as midnight in the session zone; pin it to UTC.
	t.DueDate = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	t.Description = description.String
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
