package service

import (
	"context"
	"sync"
	"time"

	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/internal/domains/reservation/repository"
	"flashsale-backend/pkg/cache"
	"flashsale-backend/pkg/logger"
)

const sweeperStatusKey = "sweeper:status"

// Sweeper expires overdue pending reservations in bounded batches. One pass
// runs at a time; a tick arriving while a pass is active is skipped rather
// than queued. The health snapshot is persisted to the shared cache so the
// API process can serve it even though the loop runs in the worker.
type Sweeper struct {
	engine       ServiceInterface
	reservations repository.RepositoryInterface
	kv           cache.Cache

	batchSize      int
	interval       time.Duration
	unhealthyAfter time.Duration
	now            func() time.Time

	mu     sync.Mutex
	status model.SweeperStatus
}

// SweeperOptions tunes the sweep loop.
type SweeperOptions struct {
	BatchSize      int
	Interval       time.Duration
	UnhealthyAfter time.Duration
	Now            func() time.Time
}

func NewSweeper(
	engine ServiceInterface,
	reservations repository.RepositoryInterface,
	kv cache.Cache,
	opts SweeperOptions,
) *Sweeper {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.UnhealthyAfter <= 0 {
		opts.UnhealthyAfter = 3 * opts.Interval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{
		engine:         engine,
		reservations:   reservations,
		kv:             kv,
		batchSize:      opts.BatchSize,
		interval:       opts.Interval,
		unhealthyAfter: opts.UnhealthyAfter,
		now:            opts.Now,
	}
}

// TickNow runs one sweep pass. Each overdue hold is expired in its own
// transaction so one poisoned row cannot stall the rest of the batch.
// Anything left over is picked up by the next tick.
func (s *Sweeper) TickNow(ctx context.Context) (model.SweepResult, error) {
	if !s.mu.TryLock() {
		logger.Debug("sweep tick skipped, previous pass still running", nil)
		return model.SweepResult{Skipped: true}, nil
	}
	defer s.mu.Unlock()

	started := s.now()
	result := model.SweepResult{}

	ids, err := s.reservations.FindPendingExpired(ctx, started, s.batchSize)
	if err != nil {
		s.recordRun(ctx, started, result, false)
		return result, err
	}
	result.Scanned = len(ids)

	for _, id := range ids {
		expired, err := s.engine.Expire(ctx, id)
		if err != nil {
			result.Failed++
			logger.ErrorFields("failed to expire reservation", err, map[string]interface{}{
				"reservation_id": id.String(),
			})
			continue
		}
		if expired {
			result.Expired++
		}
	}

	result.Duration = s.now().Sub(started)
	s.recordRun(ctx, started, result, true)

	if result.Scanned > 0 {
		logger.Info("sweep pass complete", map[string]interface{}{
			"scanned":     result.Scanned,
			"expired":     result.Expired,
			"failed":      result.Failed,
			"duration_ms": result.Duration.Milliseconds(),
		})
	}

	return result, nil
}

func (s *Sweeper) recordRun(ctx context.Context, started time.Time, result model.SweepResult, ok bool) {
	s.status.Running = true
	s.status.LastRunAt = started
	s.status.LastScanned = result.Scanned
	s.status.LastExpired = result.Expired
	s.status.LastFailed = result.Failed
	s.status.LastDurationMS = result.Duration.Milliseconds()
	s.status.TotalRuns++
	s.status.TotalExpired += int64(result.Expired)
	s.status.TotalFailed += int64(result.Failed)
	if ok {
		s.status.LastSuccessAt = started
	}

	if err := s.kv.Set(ctx, sweeperStatusKey, s.status, 24*time.Hour); err != nil {
		logger.Warn("failed to persist sweeper status", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// SweeperHealth reads the persisted sweep snapshot and grades it. Lives on
// the cache rather than the sweeper instance so any process can serve it.
type SweeperHealth struct {
	Status string               `json:"status"`
	Detail *model.SweeperStatus `json:"detail,omitempty"`
}

// StatusSnapshot reads the raw sweep counters persisted by the worker.
func StatusSnapshot(ctx context.Context, kv cache.Cache) (model.SweeperStatus, bool, error) {
	var status model.SweeperStatus
	found, err := kv.Get(ctx, sweeperStatusKey, &status)
	return status, found, err
}

// ResetStatus drops the persisted sweep counters. The next worker pass
// starts a fresh snapshot.
func ResetStatus(ctx context.Context, kv cache.Cache) error {
	return kv.Delete(ctx, sweeperStatusKey)
}

// Health grades the sweeper: healthy when the last successful pass is
// recent, degraded when the last pass had failures, unhealthy when no
// successful pass landed within the tolerance window.
func Health(ctx context.Context, kv cache.Cache, unhealthyAfter time.Duration, now time.Time) SweeperHealth {
	var status model.SweeperStatus
	found, err := kv.Get(ctx, sweeperStatusKey, &status)
	if err != nil || !found {
		return SweeperHealth{Status: "unhealthy"}
	}

	if now.Sub(status.LastSuccessAt) > unhealthyAfter {
		return SweeperHealth{Status: "unhealthy", Detail: &status}
	}
	if status.LastFailed > 0 {
		return SweeperHealth{Status: "degraded", Detail: &status}
	}
	return SweeperHealth{Status: "healthy", Detail: &status}
}
