package domain

import "time"

// RolloverCommand asks the worker to carry one user's incomplete tasks
// forward between two civil days. It is the payload enqueued to the rollover
// queue, one message per user.
type RolloverCommand struct {
	// ID doubles as the idempotency key when the command is enqueued.
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FromInstant time.Time `json:"fromInstant"`
	ToInstant   time.Time `json:"toInstant"`
	RequestedAt int64     `json:"requestedAt"`
}
