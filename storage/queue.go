package storage

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"dayplan-api/domain"
)

// EnqueueRollover sends a rollover command to the worker queue.
func (s *Storage) EnqueueRollover(ctx context.Context, cmd domain.RolloverCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	_, err = s.rolloverQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// DequeueRollover retrieves a single pending rollover message, or nil when
// the queue is empty.
func (s *Storage) DequeueRollover(ctx context.Context) (*azqueue.DequeuedMessage, error) {
	resp, err := s.rolloverQueue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	return resp.Messages[0], nil
}

// DeleteRollover removes a processed rollover message from the queue.
func (s *Storage) DeleteRollover(ctx context.Context, id, receipt string) error {
	_, err := s.rolloverQueue.DeleteMessage(ctx, id, receipt, nil)
	return err
}
