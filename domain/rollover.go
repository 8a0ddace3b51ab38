package domain

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskStore is the persistence collaborator for the rollover and manual-move
// paths. Implementations should apply a batch of moves atomically where the
// backing store supports it; otherwise a failure mid-batch may leave the
// rollover partially applied and the caller retries.
type TaskStore interface {
	// ListIncompleteInRange returns incomplete tasks owned by userID whose
	// due date falls in [from, to], ordered by display order ascending.
	ListIncompleteInRange(ctx context.Context, userID string, from, to time.Time) ([]Task, error)
	// ListInRange returns tasks of any status owned by userID whose due
	// date falls in [from, to], ordered by display order ascending.
	ListInRange(ctx context.Context, userID string, from, to time.Time) ([]Task, error)
	// GetTask returns the task or ErrTaskNotFound.
	GetTask(ctx context.Context, userID, taskID string) (*Task, error)
	// ApplyMoves persists due date, display order and rolled-over changes
	// for the given tasks.
	ApplyMoves(ctx context.Context, userID string, moves []TaskMove) error
	// UpdateStatus persists a status transition together with its
	// completion timestamp.
	UpdateStatus(ctx context.Context, userID, taskID string, status Status, completedAt *time.Time) error
}

// RolloverService carries incomplete tasks forward from one civil day to
// another and hosts the manual reorder and reschedule operations. It is
// stateless; every invocation receives its instants explicitly so tests
// never patch an ambient clock.
type RolloverService struct {
	store TaskStore
	clock DayClock
}

func NewRolloverService(store TaskStore, clock DayClock) RolloverService {
	return RolloverService{store: store, clock: clock}
}

// Clock exposes the civil day clock the service was built with.
func (s RolloverService) Clock() DayClock { return s.clock }

// Rollover moves every incomplete task on the civil day of fromInstant to
// the civil day of toInstant, appending them after the destination day's
// existing tasks in their original relative order, and returns how many
// tasks were moved. An empty source day is a normal zero result.
//
// Day adjacency is deliberately not enforced: callers may roll several days
// forward in one call (batch catch-up). A non-adjacent pair is logged as a
// warning so unintended invocations are visible.
func (s RolloverService) Rollover(ctx context.Context, userID string, fromInstant, toInstant time.Time) (int, error) {
	fromKey := s.clock.DayKey(fromInstant)
	toKey := s.clock.DayKey(toInstant)
	if fromKey == toKey {
		return 0, fmt.Errorf("rollover %s for user %s: %w", fromKey, userID, ErrSameDayRollover)
	}
	if next, err := s.clock.NextDayKey(fromKey); err == nil && next != toKey {
		log.WithFields(log.Fields{"user": userID, "from": fromKey, "to": toKey}).
			Warn("rollover days are not adjacent")
	}

	fromStart := s.clock.StartOfDay(fromInstant)
	fromEnd := s.clock.EndOfDay(fromInstant)
	pending, err := s.store.ListIncompleteInRange(ctx, userID, fromStart, fromEnd)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	// The store contract orders by display order already; sort again so a
	// loose fake or backend cannot perturb the relative order we preserve.
	SortBucket(pending)

	toStart := s.clock.StartOfDay(toInstant)
	toEnd := s.clock.EndOfDay(toInstant)
	existing, err := s.store.ListInRange(ctx, userID, toStart, toEnd)
	if err != nil {
		return 0, err
	}
	base := AppendOrder(BucketOrders(existing))

	moves := make([]TaskMove, len(pending))
	for i, t := range pending {
		moves[i] = TaskMove{
			ID:           t.ID,
			DueDate:      toInstant.UTC(),
			DisplayOrder: base + i*OrderGap,
			RolledOver:   true,
		}
	}
	if err := s.store.ApplyMoves(ctx, userID, moves); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"user": userID, "from": fromKey, "to": toKey, "moved": len(moves)}).
		Info("rolled over incomplete tasks")
	return len(moves), nil
}

// PlanNewTask allocates the display order for a task appended to the civil
// day of dueDate.
func (s RolloverService) PlanNewTask(ctx context.Context, userID string, dueDate time.Time) (int, error) {
	existing, err := s.store.ListInRange(ctx, userID, s.clock.StartOfDay(dueDate), s.clock.EndOfDay(dueDate))
	if err != nil {
		return 0, err
	}
	return AppendOrder(BucketOrders(existing)), nil
}

// Reorder assigns taskID a new display order between its prospective
// neighbors within its current day. ErrNoOrderGap propagates untouched so
// the caller can trigger RenumberDay.
func (s RolloverService) Reorder(ctx context.Context, userID, taskID string, prev, next int) (int, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return 0, err
	}
	order, err := BetweenOrder(prev, next)
	if err != nil {
		return 0, fmt.Errorf("reorder task %s between %d and %d: %w", taskID, prev, next, err)
	}
	move := TaskMove{ID: task.ID, DueDate: task.DueDate, DisplayOrder: order, RolledOver: task.RolledOver}
	if err := s.store.ApplyMoves(ctx, userID, []TaskMove{move}); err != nil {
		return 0, err
	}
	return order, nil
}

// RenumberDay rewrites a day bucket's display orders as OrderGap, 2*OrderGap,
// ... preserving relative order. It is the recovery pass for an exhausted
// midpoint gap.
func (s RolloverService) RenumberDay(ctx context.Context, userID, dayKey string) (int, error) {
	start, end, err := s.clock.DayWindow(dayKey)
	if err != nil {
		return 0, err
	}
	bucket, err := s.store.ListInRange(ctx, userID, start, end)
	if err != nil {
		return 0, err
	}
	if len(bucket) == 0 {
		return 0, nil
	}
	SortBucket(bucket)
	moves := make([]TaskMove, len(bucket))
	for i, t := range bucket {
		moves[i] = TaskMove{ID: t.ID, DueDate: t.DueDate, DisplayOrder: (i + 1) * OrderGap, RolledOver: t.RolledOver}
	}
	if err := s.store.ApplyMoves(ctx, userID, moves); err != nil {
		return 0, err
	}
	return len(moves), nil
}

// Reschedule moves a single task to the civil day of "to" with an appended
// display order. A manual move resets the rolled-over flag unless the caller
// explicitly keeps it.
func (s RolloverService) Reschedule(ctx context.Context, userID, taskID string, to time.Time, keepRolledOver bool) error {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	order, err := s.PlanNewTask(ctx, userID, to)
	if err != nil {
		return err
	}
	move := TaskMove{
		ID:           task.ID,
		DueDate:      to.UTC(),
		DisplayOrder: order,
		RolledOver:   keepRolledOver && task.RolledOver,
	}
	return s.store.ApplyMoves(ctx, userID, []TaskMove{move})
}

// SetStatus applies a status transition, maintaining the invariant that
// CompletedAt is set exactly when the task is complete. The transition
// instant comes from the caller.
func (s RolloverService) SetStatus(ctx context.Context, userID, taskID string, status Status, at time.Time) error {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	switch status {
	case StatusComplete:
		task.Complete(at)
	case StatusIncomplete:
		task.Reopen()
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	return s.store.UpdateStatus(ctx, userID, taskID, task.Status, task.CompletedAt)
}
