package domain

import (
	"fmt"
	"time"
)

// Status marks whether a task is still open.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// Task categories form a closed set.
const (
	CategoryWork    = "work"
	CategoryHome    = "home"
	CategoryErrand  = "errand"
	CategorySomeday = "someday"
)

var categories = map[string]struct{}{
	CategoryWork:    {},
	CategoryHome:    {},
	CategoryErrand:  {},
	CategorySomeday: {},
}

// ValidCategory reports whether c is one of the known category labels.
func ValidCategory(c string) bool {
	_, ok := categories[c]
	return ok
}

// Task represents a single planner item owned by one user. DueDate is an
// absolute instant; the civil day it belongs to is derived through DayClock.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	DueDate      time.Time  `json:"dueDate"`
	Category     string     `json:"category"`
	Priority     bool       `json:"isPriority,omitempty"`
	DisplayOrder int        `json:"displayOrder"`
	RolledOver   bool       `json:"isRolledOver,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	UserID       string     `json:"-"`
}

// Validate checks the structural invariants a task must satisfy before it is
// handed to the store.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task has no id")
	}
	if t.Title == "" {
		return fmt.Errorf("task %s has empty title", t.ID)
	}
	if t.Status != StatusIncomplete && t.Status != StatusComplete {
		return fmt.Errorf("task %s has unknown status %q", t.ID, t.Status)
	}
	if !ValidCategory(t.Category) {
		return fmt.Errorf("task %s has unknown category %q", t.ID, t.Category)
	}
	if t.DueDate.IsZero() {
		return fmt.Errorf("task %s has no due date", t.ID)
	}
	if (t.CompletedAt != nil) != (t.Status == StatusComplete) {
		return fmt.Errorf("task %s: completedAt must be set exactly when status is complete", t.ID)
	}
	return nil
}

// Complete transitions the task to complete, stamping CompletedAt with the
// supplied instant unless one is already present.
func (t *Task) Complete(at time.Time) {
	if t.Status == StatusComplete {
		return
	}
	t.Status = StatusComplete
	if t.CompletedAt == nil {
		at = at.UTC()
		t.CompletedAt = &at
	}
}

// Reopen transitions the task back to incomplete and clears CompletedAt.
func (t *Task) Reopen() {
	t.Status = StatusIncomplete
	t.CompletedAt = nil
}

// TaskMove is the exact field set the rollover and reschedule paths are
// allowed to mutate. Everything else on the task is left untouched.
type TaskMove struct {
	ID           string
	DueDate      time.Time
	DisplayOrder int
	RolledOver   bool
}
