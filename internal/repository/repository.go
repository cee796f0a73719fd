// Package repository declares the storage contracts the service layer depends on.
//
// Two backends implement them: repository/sqlite (the default, embedded) and
// repository/postgres. Services only ever see these interfaces, so the backend
// is picked once in the composition root and nowhere else.
//
// Conventions shared by every implementation:
//   - a missing row is reported as apperror.ErrNotFound
//   - a unique-constraint violation on users is reported as apperror.ErrConflict
//     with Field set to "username" or "email"
//   - Create fills in the generated ID (and CreatedAt) on the struct passed in
package repository

import (
	"context"
	"time"

	"github.com/sakif/task-manager/internal/model"
)

// UserRepository is the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// TaskRepository is the task store. Update writes title, description and due
// date only; owner, status and creation time are left as stored.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	ListByOwner(ctx context.Context, userID int64) ([]model.Task, error)
	ListDueOn(ctx context.Context, day time.Time) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id int64) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
