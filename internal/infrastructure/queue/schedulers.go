package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// Scheduler registers recurring jobs. Only the sweep tick exists today; the
// interval comes from configuration so staging can tighten it.
type Scheduler struct {
	scheduler     *asynq.Scheduler
	sweepInterval time.Duration
}

func NewScheduler(redisOpt asynq.RedisClientOpt, sweepInterval time.Duration) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler:     scheduler,
		sweepInterval: sweepInterval,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return s.registerSweepTickJob()
}

func (s *Scheduler) registerSweepTickJob() error {
	payload, err := json.Marshal(shared.SweepTickPayload{Manual: false})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeSweeperTick, payload)

	_, err = s.scheduler.Register(
		fmt.Sprintf("@every %s", s.sweepInterval),
		task,
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		logger.Error("failed to register sweep tick job", err)
		return err
	}

	logger.Info("registered sweep tick job", map[string]interface{}{
		"interval": s.sweepInterval.String(),
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
