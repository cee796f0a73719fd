package service

import (
	"context"
	"testing"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
)

// TestAliceAndBob walks the two-user story end to end through the services:
// alice's task is invisible and immutable to bob.
func TestAliceAndBob(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	tasks := NewTaskService(newFakeTaskRepo(), quietLogger())

	// alice registers, logs in and resolves her session
	if _, err := f.svc.Register(ctx, "alice", "a@x.com", "p"); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	aliceSession, err := f.svc.Login(ctx, "a@x.com", "p")
	if err != nil {
		t.Fatalf("login alice: %v", err)
	}
	alice := f.svc.Resolve(ctx, aliceSession.Token)
	if alice == nil {
		t.Fatal("alice's session did not resolve")
	}

	milk, err := tasks.Create(ctx, alice, TaskInput{Title: "Buy milk", DueDate: "2025-01-01"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, _ := tasks.ListOwned(ctx, alice)
	if len(list) != 1 || list[0].Title != "Buy milk" || list[0].Status != model.StatusPending {
		t.Fatalf("alice's list = %+v", list)
	}

	// bob registers and tries to edit alice's task
	if _, err := f.svc.Register(ctx, "bob", "b@x.com", "q"); err != nil {
		t.Fatalf("register bob: %v", err)
	}
	bobSession, err := f.svc.Login(ctx, "b@x.com", "q")
	if err != nil {
		t.Fatalf("login bob: %v", err)
	}
	bob := f.svc.Resolve(ctx, bobSession.Token)

	_, err = tasks.Edit(ctx, bob, milk.ID, TaskInput{Title: "Buy beer", DueDate: "2025-01-01"})
	assertAppError(t, err, apperror.ErrForbidden, "")

	bobList, _ := tasks.ListOwned(ctx, bob)
	if len(bobList) != 0 {
		t.Errorf("bob sees %d tasks, want 0", len(bobList))
	}

	after, err := tasks.Get(ctx, alice, milk.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Title != "Buy milk" || after.UserID != alice.ID || !after.DueDate.Equal(milk.DueDate) {
		t.Errorf("alice's task changed: %+v", after)
	}

	f.svc.Wait()
}
