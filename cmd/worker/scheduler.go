package main

import (
	"log"

	"flashsale-backend/internal/infrastructure/queue"
	"flashsale-backend/pkg/logger"
)

type workerScheduler struct {
	*queue.Scheduler
}

func setupScheduler(deps *workerDeps) *workerScheduler {
	scheduler := queue.NewScheduler(deps.redisOpt, deps.Config.Sweeper.Interval)

	if err := scheduler.RegisterJobs(); err != nil {
		log.Fatalf("failed to register scheduled jobs: %v", err)
	}

	go func() {
		if err := scheduler.Start(); err != nil {
			log.Fatalf("scheduler failed: %v", err)
		}
	}()

	return &workerScheduler{Scheduler: scheduler}
}

func (s *workerScheduler) Shutdown() {
	logger.Info("stopping scheduler", nil)
	s.Scheduler.Shutdown()
}
