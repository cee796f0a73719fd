package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is the PostgreSQL credential store.
type UserStore struct {
	conn *sql.DB
}

// Create inserts user and fills in ID and CreatedAt from the database.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		switch {
		case uniqueViolation(err, "users_email_key"):
			return apperror.DuplicateEmail(user.Email)
		case uniqueViolation(err, "users_username_key"):
			return apperror.DuplicateUsername(user.Username)
		}
		return fmt.Errorf("postgres: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getOne(ctx, "id", id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getOne(ctx, "email", email)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getOne(ctx, "username", username)
}

// getOne looks a user up by column. column is always one of the literals
// above, never caller input.
func (s *UserStore) getOne(ctx context.Context, column string, arg any) (*model.User, error) {
	var u model.User
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at
		 FROM users WHERE `+column+` = $1`,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user by %s: %w", column, err)
	}
	return &u, nil
}
