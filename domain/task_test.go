package domain

import (
	"testing"
	"time"
)

func TestTaskValidate(t *testing.T) {
	due := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	valid := Task{ID: "t1", Title: "write report", Status: StatusIncomplete, DueDate: due, Category: CategoryWork, UserID: "u1"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	cases := map[string]func(*Task){
		"missing id":            func(tk *Task) { tk.ID = "" },
		"empty title":           func(tk *Task) { tk.Title = "" },
		"unknown status":        func(tk *Task) { tk.Status = "paused" },
		"unknown category":      func(tk *Task) { tk.Category = "hobby" },
		"zero due date":         func(tk *Task) { tk.DueDate = time.Time{} },
		"completedAt without complete": func(tk *Task) {
			at := due
			tk.CompletedAt = &at
		},
		"complete without completedAt": func(tk *Task) { tk.Status = StatusComplete },
	}
	for name, mutate := range cases {
		tk := valid
		mutate(&tk)
		if err := tk.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCompleteStampsTimestampOnce(t *testing.T) {
	due := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tk := Task{ID: "t1", Title: "x", Status: StatusIncomplete, DueDate: due, Category: CategoryHome}
	first := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	tk.Complete(first)
	if tk.Status != StatusComplete || tk.CompletedAt == nil || !tk.CompletedAt.Equal(first) {
		t.Fatalf("unexpected state after complete: %#v", tk)
	}
	// Completing again must not move the timestamp.
	tk.Complete(first.Add(time.Hour))
	if !tk.CompletedAt.Equal(first) {
		t.Fatalf("completedAt moved on repeat completion: %v", tk.CompletedAt)
	}
	if err := tk.Validate(); err != nil {
		t.Fatalf("completed task invalid: %v", err)
	}
}

func TestReopenClearsCompletedAt(t *testing.T) {
	due := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tk := Task{ID: "t1", Title: "x", Status: StatusIncomplete, DueDate: due, Category: CategoryErrand}
	tk.Complete(due)
	tk.Reopen()
	if tk.Status != StatusIncomplete || tk.CompletedAt != nil {
		t.Fatalf("unexpected state after reopen: %#v", tk)
	}
	if err := tk.Validate(); err != nil {
		t.Fatalf("reopened task invalid: %v", err)
	}
}

func TestValidCategory(t *testing.T) {
	for _, c := range []string{CategoryWork, CategoryHome, CategoryErrand, CategorySomeday} {
		if !ValidCategory(c) {
			t.Fatalf("category %s rejected", c)
		}
	}
	if ValidCategory("chores") {
		t.Fatal("unknown category accepted")
	}
}
