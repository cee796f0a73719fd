package sqlite

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

// TaskStore is the SQLite task store.
type TaskStore struct {
	conn *sql.DB
}

const taskColumns = `id, user_id, title, description, status, due_date, created_at`

// Create inserts a task and fills in ID and CreatedAt. An empty Status is
// stored as model.StatusPending.
func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	task.CreatedAt = time.Now().UTC()

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, status, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.UserID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.DueDateString(),
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading task id: %w", err)
	}
	task.ID = id

	return nil
}

// GetByID retrieves a single task. Ownership is NOT checked here; that is the
// service's job.
func (s *TaskStore) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting task %d: %w", id, err)
	}
	return task, nil
}

// ListByOwner returns every task owned by userID in insertion order.
func (s *TaskStore) ListByOwner(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.list(ctx, `WHERE user_id = ? ORDER BY id`, userID)
}

// ListDueOn returns every task, across all owners, whose due date is day.
// Only the reminder job calls this.
func (s *TaskStore) ListDueOn(ctx context.Context, day time.Time) ([]model.Task, error) {
	return s.list(ctx, `WHERE due_date = ? ORDER BY user_id, id`, day.Format(model.DateLayout))
}

// Update overwrites title, description and due date. user_id, status and
// created_at are deliberately absent from the SET clause.
func (s *TaskStore) Update(ctx context.Context, task *model.Task) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE tasks
		 SET title = ?, description = ?, due_date = ?
		 WHERE id = ?`,
		task.Title,
		nullString(task.Description),
		task.DueDateString(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %d: %w", task.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("task", task.ID)
	}
	return nil
}

// Delete removes a task permanently.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}

func (s *TaskStore) list(ctx context.Context, where string, args ...any) ([]model.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}

	return tasks, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*model.Task, error) {
	var (
		t           model.Task
		description sql.NullString
		dueDate     string
	)
	if err := sc.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Status, &dueDate, &t.CreatedAt); err != nil {
		return nil, err
	}

	d, err := model.ParseDate(dueDate)
	if err != nil {
		return nil, err
	}
	t.DueDate = d
	t.Description = description.String

	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
