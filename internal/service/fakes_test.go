package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/notify"
	"github.com/sakif/task-manager/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory stores. Each one keeps copies, never the caller's
// pointer, so a test cannot accidentally "persist" by mutating a result.

var (
	_ repository.UserRepository = (*fakeUserRepo)(nil)
	_ repository.TaskRepository = (*fakeTaskRepo)(nil)
	_ notify.Mailer             = (*recordingMailer)(nil)
)

type fakeUserRepo struct {
	users  map[int64]model.User
	nextID int64

	// non-nil to simulate a database failure
	createErr error
	lookupErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
		if u.Username == user.Username {
			return apperror.DuplicateUsername(user.Username)
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now().UTC()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u model.User) bool { return u.Username == username }, username)
}

func (f *fakeUserRepo) find(match func(model.User) bool, key string) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

type fakeTaskRepo struct {
	tasks  map[int64]model.Task
	nextID int64

	listErr   error
	updateErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int64]model.Task)}
}

func (f *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	f.nextID++
	task.ID = f.nextID
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	task.CreatedAt = time.Now().UTC()
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id int64) (*model.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	return &t, nil
}

func (f *fakeTaskRepo) ListByOwner(_ context.Context, userID int64) ([]model.Task, error) {
	return f.filter(func(t model.Task) bool { return t.UserID == userID })
}

func (f *fakeTaskRepo) ListDueOn(_ context.Context, day time.Time) ([]model.Task, error) {
	return f.filter(func(t model.Task) bool { return t.DueDate.Equal(day) })
}

// filter walks ids in order so results match the stores' ORDER BY id.
func (f *fakeTaskRepo) filter(keep func(model.Task) bool) ([]model.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Task, 0)
	for id := int64(1); id <= f.nextID; id++ {
		if t, ok := f.tasks[id]; ok && keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *model.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.tasks[task.ID]
	if !ok {
		return apperror.NotFound("task", task.ID)
	}
	stored.Title = task.Title
	stored.Description = task.Description
	stored.DueDate = task.DueDate
	f.tasks[task.ID] = stored
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return apperror.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

// recordingMailer remembers every message. Welcome mail is sent from a
// goroutine, hence the mutex.
type recordingMailer struct {
	mu      sync.Mutex
	sent    []notify.Message
	failFor map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("relay rejected recipient")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

// =========================================================================
// HELPERS
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	svc    *AuthService
	users  *fakeUserRepo
	mailer *recordingMailer
	tokens *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	users := newFakeUserRepo()
	mailer := &recordingMailer{}
	svc := NewAuthService(users, tokens, auth.NewPasswordServiceWithCost(4), mailer, quietLogger())
	return &authFixture{svc: svc, users: users, mailer: mailer, tokens: tokens}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func assertAppError(t *testing.T, err, sentinel error, field string) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want %v", err, sentinel)
	}
	if field == "" {
		return
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != field {
		t.Errorf("field = %+v, want %q", appErr, field)
	}
}
