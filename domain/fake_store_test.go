package domain

import (
	"context"
	"time"
)

// fakeStore is an in-memory TaskStore. It applies moves one by one, which
// also exercises the documented non-atomic degraded path when failAfter is
// set.
type fakeStore struct {
	clock     DayClock
	tasks     map[string]Task
	listErr   error
	applyErr  error
	failAfter int // apply this many moves, then fail; -1 means never
	applied   []TaskMove
}

func newFakeStore(clock DayClock, tasks ...Task) *fakeStore {
	fs := &fakeStore{clock: clock, tasks: map[string]Task{}, failAfter: -1}
	for _, t := range tasks {
		fs.tasks[t.ID] = t
	}
	return fs
}

func (f *fakeStore) inRange(userID string, from, to time.Time, onlyIncomplete bool) []Task {
	var out []Task
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		if t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		if onlyIncomplete && t.Status != StatusIncomplete {
			continue
		}
		out = append(out, t)
	}
	SortBucket(out)
	return out
}

func (f *fakeStore) ListIncompleteInRange(ctx context.Context, userID string, from, to time.Time) ([]Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.inRange(userID, from, to, true), nil
}

func (f *fakeStore) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.inRange(userID, from, to, false), nil
}

func (f *fakeStore) GetTask(ctx context.Context, userID, taskID string) (*Task, error) {
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (f *fakeStore) ApplyMoves(ctx context.Context, userID string, moves []TaskMove) error {
	if f.applyErr != nil && f.failAfter < 0 {
		return f.applyErr
	}
	for i, m := range moves {
		if f.applyErr != nil && i >= f.failAfter {
			return f.applyErr
		}
		t, ok := f.tasks[m.ID]
		if !ok {
			return ErrTaskNotFound
		}
		t.DueDate = m.DueDate
		t.DisplayOrder = m.DisplayOrder
		t.RolledOver = m.RolledOver
		f.tasks[m.ID] = t
		f.applied = append(f.applied, m)
	}
	return nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, userID, taskID string, status Status, completedAt *time.Time) error {
	t, ok := f.tasks[taskID]
	if !ok || t.UserID != userID {
		return ErrTaskNotFound
	}
	t.Status = status
	t.CompletedAt = completedAt
	f.tasks[taskID] = t
	return nil
}
