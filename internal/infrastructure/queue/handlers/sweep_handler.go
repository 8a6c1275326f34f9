package handlers

import (
	"context"
	"encoding/json"

	"flashsale-backend/internal/domains/reservation/service"
	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// SweepTickHandler runs one sweeper pass per tick. Overlapping ticks are
// coalesced inside the sweeper, so a slow pass simply absorbs the next tick.
func SweepTickHandler(sweeper *service.Sweeper) func(ctx context.Context, t *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var p shared.SweepTickPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return asynq.SkipRetry
		}

		result, err := sweeper.TickNow(ctx)
		if err != nil {
			logger.Error("sweep pass failed", err)
			return err
		}

		if p.Manual {
			logger.Info("manual sweep finished", map[string]interface{}{
				"scanned": result.Scanned,
				"expired": result.Expired,
				"failed":  result.Failed,
				"skipped": result.Skipped,
			})
		}
		return nil
	}
}
