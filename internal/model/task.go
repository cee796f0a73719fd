package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted due-date format, both in forms and in storage.
const DateLayout = "2006-01-02"

// StatusPending is assigned to every new task. Status is otherwise free text.
const StatusPending = "Pending"

// Task is a single to-do item owned by exactly one User.
//
// ID, UserID and CreatedAt are fixed at creation. Editing touches only Title,
// Description and DueDate; Status is never changed by an edit.
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"` // empty means NULL in the store
	Status      string    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DueDateString formats the due date the way forms and templates expect it.
func (t Task) DueDateString() string {
	return t.DueDate.Format(DateLayout)
}

// OwnedBy reports whether the task belongs to the given user id.
func (t Task) OwnedBy(userID int64) bool {
	return t.UserID == userID
}

// ParseDate parses a calendar date in DateLayout. The result is midnight UTC
// so that dates compare equal regardless of the server's time zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("model: parsing date %q: %w", s, err)
	}
	return d, nil
}
