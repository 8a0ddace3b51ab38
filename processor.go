package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dayplan-api/domain"
)

type rolloverRunner interface {
	Rollover(ctx context.Context, userID string, fromInstant, toInstant time.Time) (int, error)
}

// processRollover applies one dequeued rollover command: dedupe the
// (user, day-pair), run the engine, then notify subscribers so open day
// views refresh. A failed run releases the dedupe key so the message can be
// retried.
func processRollover(ctx context.Context, runner rolloverRunner, clock domain.DayClock, deduper Deduper, rc *redis.Client, channel string, cmd domain.RolloverCommand, payload string) error {
	dayPair := clock.DayKey(cmd.FromInstant) + ">" + clock.DayKey(cmd.ToInstant)
	fresh, err := deduper.Add(ctx, cmd.UserID, dayPair)
	if err != nil {
		return err
	}
	if !fresh {
		log.WithFields(log.Fields{"user": cmd.UserID, "pair": dayPair, "cmd": cmd.ID}).
			Info("skipping duplicate rollover command")
		return nil
	}

	moved, err := runner.Rollover(ctx, cmd.UserID, cmd.FromInstant, cmd.ToInstant)
	if err != nil {
		if rerr := deduper.Remove(ctx, cmd.UserID, dayPair); rerr != nil {
			log.WithError(rerr).WithField("user", cmd.UserID).Error("dedupe rollback failed")
		}
		return err
	}
	if moved > 0 && rc != nil {
		if err := rc.Publish(ctx, channel, payload).Err(); err != nil {
			log.WithError(err).WithField("user", cmd.UserID).Error("unable to publish rollover update")
		}
	}
	return nil
}
