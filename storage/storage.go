package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"dayplan-api/domain"
)

const (
	edmInt32 = "Edm.Int32"
	edmInt64 = "Edm.Int64"

	// Azure table transactions accept at most 100 actions per batch.
	maxBatchActions = 100
)

// Storage persists tasks in Azure Table Storage, one partition per user, and
// carries the rollover command queue. It implements domain.TaskStore.
type Storage struct {
	taskTable     *aztables.Client
	rolloverQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, rolloverQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	rq, err := azqueue.NewQueueClientFromConnectionString(connStr, rolloverQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: tt, rolloverQueue: rq}, nil
}

// taskEntity is the table representation of a task. Instants are stored as
// unix milliseconds (Edm.Int64) so range filters stay plain integer
// comparisons; CompletedAt of zero means the task was never completed.
type taskEntity struct {
	aztables.Entity
	Title           string `json:"Title"`
	Category        string `json:"Category"`
	Priority        bool   `json:"Priority"`
	Done            bool   `json:"Done"`
	DueDate         int64  `json:"DueDate,string"`
	DueDateType     string `json:"DueDate@odata.type,omitempty"`
	DisplayOrder    int    `json:"DisplayOrder"`
	RolledOver      bool   `json:"RolledOver"`
	CompletedAt     int64  `json:"CompletedAt,string"`
	CompletedAtType string `json:"CompletedAt@odata.type,omitempty"`
}

func encodeTask(t domain.Task) taskEntity {
	ent := taskEntity{
		Entity:       aztables.Entity{PartitionKey: t.UserID, RowKey: t.ID},
		Title:        t.Title,
		Category:     t.Category,
		Priority:     t.Priority,
		Done:         t.Status == domain.StatusComplete,
		DueDate:      t.DueDate.UnixMilli(),
		DueDateType:  edmInt64,
		DisplayOrder: t.DisplayOrder,
		RolledOver:   t.RolledOver,
	}
	if t.CompletedAt != nil {
		ent.CompletedAt = t.CompletedAt.UnixMilli()
		ent.CompletedAtType = edmInt64
	}
	return ent
}

func decodeTask(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		ID:           ent.RowKey,
		UserID:       ent.PartitionKey,
		Title:        ent.Title,
		Category:     ent.Category,
		Priority:     ent.Priority,
		Status:       domain.StatusIncomplete,
		DueDate:      time.UnixMilli(ent.DueDate).UTC(),
		DisplayOrder: ent.DisplayOrder,
		RolledOver:   ent.RolledOver,
	}
	if ent.Done {
		t.Status = domain.StatusComplete
	}
	if ent.CompletedAt != 0 {
		at := time.UnixMilli(ent.CompletedAt).UTC()
		t.CompletedAt = &at
	}
	return t, nil
}

// quoteODataString escapes a value for use inside an OData string literal.
// The user id comes from the caller's auth header, so it must not be able to
// rewrite the filter predicate.
func quoteODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func rangeFilter(userID string, from, to time.Time, onlyIncomplete bool) string {
	f := fmt.Sprintf("PartitionKey eq '%s' and DueDate ge %dL and DueDate le %dL",
		quoteODataString(userID), from.UnixMilli(), to.UnixMilli())
	if onlyIncomplete {
		f += " and Done eq false"
	}
	return f
}

func (s *Storage) listByFilter(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, err := decodeTask(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	// Table results arrive in row-key order; callers expect display order.
	domain.SortBucket(tasks)
	return tasks, nil
}

// ListIncompleteInRange returns the user's incomplete tasks with a due date
// in [from, to], display order ascending.
func (s *Storage) ListIncompleteInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	return s.listByFilter(ctx, rangeFilter(userID, from, to, true))
}

// ListInRange returns the user's tasks of any status with a due date in
// [from, to], display order ascending.
func (s *Storage) ListInRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	return s.listByFilter(ctx, rangeFilter(userID, from, to, false))
}

// GetTask loads a single task or reports domain.ErrTaskNotFound.
func (s *Storage) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, userID, taskID, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
		}
		return nil, err
	}
	t, err := decodeTask(resp.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTask creates a new task row. A duplicate id surfaces as an error.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	payload, err := json.Marshal(encodeTask(t))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 409 {
			return fmt.Errorf("task %s already exists: %w", t.ID, domain.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

// taskMoveUpdate is the merge payload for a rollover or reschedule move. Only
// the movable fields are present so everything else on the row is preserved.
type taskMoveUpdate struct {
	aztables.Entity
	DueDate          int64  `json:"DueDate,string"`
	DueDateType      string `json:"DueDate@odata.type"`
	DisplayOrder     int    `json:"DisplayOrder"`
	DisplayOrderType string `json:"DisplayOrder@odata.type"`
	RolledOver       bool   `json:"RolledOver"`
}

// ApplyMoves persists a batch of moves as table transactions, one atomic
// batch per 100 actions within the user's partition. A rollover for a user
// therefore commits all-or-nothing unless it exceeds the batch limit, in
// which case a failure between chunks can leave the move partially applied
// and the caller retries.
func (s *Storage) ApplyMoves(ctx context.Context, userID string, moves []domain.TaskMove) error {
	for start := 0; start < len(moves); start += maxBatchActions {
		end := start + maxBatchActions
		if end > len(moves) {
			end = len(moves)
		}
		actions := make([]aztables.TransactionAction, 0, end-start)
		for _, m := range moves[start:end] {
			upd := taskMoveUpdate{
				Entity:           aztables.Entity{PartitionKey: userID, RowKey: m.ID},
				DueDate:          m.DueDate.UnixMilli(),
				DueDateType:      edmInt64,
				DisplayOrder:     m.DisplayOrder,
				DisplayOrderType: edmInt32,
				RolledOver:       m.RolledOver,
			}
			payload, err := json.Marshal(upd)
			if err != nil {
				return err
			}
			actions = append(actions, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeUpdateMerge,
				Entity:     payload,
			})
		}
		if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
			var respErr *azcore.ResponseError
			if errors.As(err, &respErr) && respErr.StatusCode == 404 {
				return fmt.Errorf("move batch for user %s: %w", userID, domain.ErrTaskNotFound)
			}
			return err
		}
	}
	return nil
}

// statusUpdate is the merge payload for a status transition. CompletedAt of
// zero marks the cleared state since a merge cannot remove a property.
type statusUpdate struct {
	aztables.Entity
	Done            bool   `json:"Done"`
	CompletedAt     int64  `json:"CompletedAt,string"`
	CompletedAtType string `json:"CompletedAt@odata.type"`
}

// UpdateStatus persists a status transition and its completion timestamp.
func (s *Storage) UpdateStatus(ctx context.Context, userID, taskID string, status domain.Status, completedAt *time.Time) error {
	upd := statusUpdate{
		Entity:          aztables.Entity{PartitionKey: userID, RowKey: taskID},
		Done:            status == domain.StatusComplete,
		CompletedAtType: edmInt64,
	}
	if completedAt != nil {
		upd.CompletedAt = completedAt.UnixMilli()
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
		}
		return err
	}
	return nil
}
