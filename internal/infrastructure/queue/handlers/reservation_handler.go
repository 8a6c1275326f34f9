package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flashsale-backend/internal/infrastructure/queue"
	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/cache"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

const seenTTL = 24 * time.Hour

// ReservationEventHandler consumes reservation.* lifecycle events and keeps
// rolling per-type counters. Delivery is at-least-once, so each event id is
// recorded in the cache and duplicates are dropped.
func ReservationEventHandler(kv cache.Cache, dlq DeadLetterer) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var env shared.EventEnvelope
		if err := json.Unmarshal(t.Payload(), &env); err != nil {
			deadLetter(ctx, dlq, t, fmt.Errorf("invalid envelope: %w", err))
			return asynq.SkipRetry
		}

		var p queue.ReservationEventPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			deadLetter(ctx, dlq, t, fmt.Errorf("invalid reservation event data: %w", err))
			return asynq.SkipRetry
		}
		if p.ReservationID == "" || p.UserID == "" {
			deadLetter(ctx, dlq, t, errors.New("reservation event missing ids"))
			return asynq.SkipRetry
		}

		if env.Metadata.EventID != "" {
			seenKey := "event:seen:" + env.Metadata.EventID
			if seen, err := kv.Exists(ctx, seenKey); err == nil && seen {
				logger.Debug("duplicate event dropped", map[string]interface{}{
					"event_id": env.Metadata.EventID,
					"type":     env.Type,
				})
				return nil
			}
		}

		counterKey := "events:" + env.Type + ":count"
		if _, err := kv.Increment(ctx, counterKey); err != nil {
			return sendOrRetry(ctx, t, dlq, fmt.Errorf("failed to bump event counter: %w", err))
		}

		// Marked seen only once processing landed; a failure above leaves
		// the id unrecorded so a redelivery is processed, not dropped.
		if env.Metadata.EventID != "" {
			_ = kv.Set(ctx, "event:seen:"+env.Metadata.EventID, true, seenTTL)
		}

		logger.Info("reservation event processed", map[string]interface{}{
			"type":           env.Type,
			"reservation_id": p.ReservationID,
			"item_id":        p.ItemID,
			"quantity":       p.Quantity,
		})
		return nil
	}
}
