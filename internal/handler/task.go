package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/model"
	"github.com/sakif/task-manager/internal/service"
)

// TaskHandler serves the task pages and GET /api/tasks.
//
// Every method passes the principal from the request context straight to
// TaskService, which does the authentication and ownership checks. The
// handler only decides what each outcome looks like.
type TaskHandler struct {
	tasks  *service.TaskService
	pages  *Renderer
	logger *slog.Logger
}

func NewTaskHandler(tasks *service.TaskService, pages *Renderer, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, pages: pages, logger: logger}
}

// HandleIndex lists the user's tasks.
//
// HTTP: GET /
func (h *TaskHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListOwned(r.Context(), principal(r))
	if err != nil {
		h.handlePageError(w, r, err, "", nil)
		return
	}

	h.pages.render(w, r, http.StatusOK, "task_list", pageData{Title: "My tasks", Tasks: tasks})
}

// HandleShowCreate renders the empty task form.
//
// HTTP: GET /create_task
func (h *TaskHandler) HandleShowCreate(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "create_task", pageData{Title: "New task"})
}

// HandleCreate adds a task owned by the current user.
//
// HTTP: POST /create_task
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in := taskInput(r)

	_, err := h.tasks.Create(r.Context(), principal(r), in)
	if err != nil {
		h.handlePageError(w, r, err, "", func(appErr *apperror.AppError, status int) {
			h.pages.render(w, r, status, "create_task", pageData{
				Title: "New task",
				Error: appErr.Message,
				Field: appErr.Field,
				Form:  formValues(in),
			})
		})
		return
	}

	redirectWithFlash(w, r, "/", flashSuccess, "Task created!")
}

// HandleShowEdit renders the edit form filled with the task's current values.
//
// HTTP: GET /edit_task/{id}
func (h *TaskHandler) HandleShowEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		h.pages.notFound(w, r)
		return
	}

	task, err := h.tasks.Get(r.Context(), principal(r), id)
	if err != nil {
		h.handlePageError(w, r, err, "You do not have permission to edit this task.", nil)
		return
	}

	h.pages.render(w, r, http.StatusOK, "edit_task", pageData{
		Title: "Edit task",
		Task:  task,
		Form: formValues(service.TaskInput{
			Title:       task.Title,
			Description: task.Description,
			DueDate:     task.DueDateString(),
		}),
	})
}

// HandleEdit saves the title, description and due date of a task.
//
// HTTP: POST /edit_task/{id}
//
// Someone else's task redirects to / with a notice and changes nothing.
func (h *TaskHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		h.pages.notFound(w, r)
		return
	}
	in := taskInput(r)

	_, err := h.tasks.Edit(r.Context(), principal(r), id, in)
	if err != nil {
		h.handlePageError(w, r, err, "You do not have permission to edit this task.",
			func(appErr *apperror.AppError, status int) {
				// Ownership was checked before validation, so this load succeeds
				// unless the task vanished in between.
				task, getErr := h.tasks.Get(r.Context(), principal(r), id)
				if getErr != nil {
					h.handlePageError(w, r, getErr, "You do not have permission to edit this task.", nil)
					return
				}
				h.pages.render(w, r, status, "edit_task", pageData{
					Title: "Edit task",
					Task:  task,
					Error: appErr.Message,
					Field: appErr.Field,
					Form:  formValues(in),
				})
			})
		return
	}

	redirectWithFlash(w, r, "/", flashSuccess, "Task updated!")
}

// HandleDelete removes a task.
//
// HTTP: POST /delete_task/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		h.pages.notFound(w, r)
		return
	}

	if err := h.tasks.Delete(r.Context(), principal(r), id); err != nil {
		h.handlePageError(w, r, err, "You do not have permission to delete this task.", nil)
		return
	}

	redirectWithFlash(w, r, "/", flashSuccess, "Task deleted.")
}

// HandleAPIList returns the user's tasks as JSON.
//
// HTTP: GET /api/tasks
// Auth: RequireAuthAPI
func (h *TaskHandler) HandleAPIList(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListOwned(r.Context(), principal(r))
	if err != nil {
		h.logger.Error("listing tasks failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handlePageError maps a service error onto a page response:
//
//	ErrUnauthenticated        → 303 /login
//	ErrForbidden              → 303 / with forbiddenMsg as a danger notice
//	ErrNotFound               → 404 page
//	ErrValidation/ErrConflict → rerender with 400/409, when the page has a form
//	anything else             → 500 page
func (h *TaskHandler) handlePageError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	forbiddenMsg string,
	rerender func(appErr *apperror.AppError, status int),
) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case errors.Is(err, apperror.ErrForbidden):
		h.logger.Warn("task access denied",
			slog.String("path", r.URL.Path),
			slog.Int64("userID", principalID(r)),
		)
		redirectWithFlash(w, r, "/", flashDanger, forbiddenMsg)
		return
	case errors.Is(err, apperror.ErrNotFound):
		h.pages.notFound(w, r)
		return
	}

	if appErr, ok := isAppError(err); ok && rerender != nil {
		status, _ := statusFor(err)
		rerender(appErr, status)
		return
	}
	h.pages.serverError(w, r, err)
}

func principal(r *http.Request) *model.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}

func principalID(r *http.Request) int64 {
	if user := principal(r); user != nil {
		return user.ID
	}
	return 0
}

// taskID parses the {id} URL parameter. Anything that is not a positive
// integer cannot name a task, so callers answer 404.
func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func taskInput(r *http.Request) service.TaskInput {
	return service.TaskInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		DueDate:     r.PostFormValue("due_date"),
	}
}

func formValues(in service.TaskInput) map[string]string {
	return map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"due_date":    in.DueDate,
	}
}
