package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
)

// newTestDB opens a fresh in-memory database for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username, email string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: email, PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "alice", Email: "a@x.com", PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_IDsIncrease(t *testing.T) {
	db := newTestDB(t)

	first := createTestUser(t, db, "alice", "a@x.com")
	second := createTestUser(t, db, "bob", "b@x.com")

	if second.ID <= first.ID {
		t.Errorf("second ID %d should be greater than first ID %d", second.ID, first.ID)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", "a@x.com")

	err := db.Users().Create(context.Background(), &model.User{
		Username: "alice2", Email: "a@x.com", PasswordHash: "hash",
	})

	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Errorf("conflict field = %+v, want email", appErr)
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", "a@x.com")

	err := db.Users().Create(context.Background(), &model.User{
		Username: "alice", Email: "other@x.com", PasswordHash: "hash",
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "username" {
		t.Fatalf("Create() error = %v, want username conflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice", "a@x.com")

	found, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Username != "alice" || found.Email != "a@x.com" || found.PasswordHash != "hash" {
		t.Errorf("GetByID() = %+v", found)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice", "a@x.com")

	found, err := db.Users().GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice", "a@x.com")

	found, err := db.Users().GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}
}

func TestUserLookups_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lookups := map[string]func() error{
		"GetByID": func() error {
			_, err := db.Users().GetByID(ctx, 999)
			return err
		},
		"GetByEmail": func() error {
			_, err := db.Users().GetByEmail(ctx, "nobody@x.com")
			return err
		},
		"GetByUsername": func() error {
			_, err := db.Users().GetByUsername(ctx, "nobody")
			return err
		},
	}

	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			if err := lookup(); !errors.Is(err, apperror.ErrNotFound) {
				t.Errorf("%s error = %v, want ErrNotFound", name, err)
			}
		})
	}
}
