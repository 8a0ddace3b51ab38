package api

import (
	"context"

	"dayplan-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	domain.TaskStore
	InsertTask(ctx context.Context, t domain.Task) error
	EnqueueRollover(ctx context.Context, cmd domain.RolloverCommand) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

type daysResponse struct {
	Zone string                   `json:"zone"`
	Days map[string][]domain.Task `json:"days"`
}

type createTaskRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority bool   `json:"isPriority"`
	DueDate  string `json:"dueDate"` // RFC 3339 instant
}

type reorderRequest struct {
	PrevOrder int `json:"prevOrder"`
	NextOrder int `json:"nextOrder"`
}

type rescheduleRequest struct {
	DueDate        string `json:"dueDate"` // RFC 3339 instant
	KeepRolledOver bool   `json:"keepRolledOver"`
}

type rolloverRequest struct {
	FromInstant string `json:"fromInstant"` // RFC 3339; defaults to yesterday
	ToInstant   string `json:"toInstant"`   // RFC 3339; defaults to now
}

type rolloverAccepted struct {
	CommandID string `json:"commandId"`
}
