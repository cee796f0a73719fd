package service

import (
	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/model"
)

// RequireAuthenticated is the guard at the top of every task operation.
// A nil principal means the request is anonymous; the HTTP layer turns the
// resulting ErrUnauthenticated into a redirect to /login.
func RequireAuthenticated(principal *model.User) (*model.User, error) {
	if principal == nil || principal.ID == 0 {
		return nil, apperror.Unauthenticated()
	}
	return principal, nil
}

// AuthorizeTaskAccess allows access only to the task's owner. It has no side
// effects; callers must run it before viewing, editing or deleting a task.
func AuthorizeTaskAccess(principal *model.User, task *model.Task) error {
	if principal == nil || task == nil || !task.OwnedBy(principal.ID) {
		return apperror.Forbidden("you do not have permission to access this task")
	}
	return nil
}
