package main

import (
	"context"
	"log"

	"flashsale-backend/internal/infrastructure/queue/handlers"
	"flashsale-backend/internal/shared"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// asynqServer wraps asynq.Server for shutdown handling.
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer configures the consumer. The dead queue is deliberately
// absent from the queue map: parked messages wait for an operator, nothing
// consumes them automatically.
func setupAsynqServer(deps *workerDeps) *asynqServer {
	mux := asynq.NewServeMux()
	registerHandlers(mux, deps)

	srv := asynq.NewServer(
		deps.redisOpt,
		asynq.Config{
			Concurrency: deps.Config.Queue.Concurrency,
			Queues: map[string]int{
				shared.QueueCritical: 6,
				shared.QueueDefault:  3,
				shared.QueueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.ErrorFields("task failed", err, map[string]interface{}{
					"type": task.Type(),
				})
			}),
		},
	)

	go func() {
		logger.Info("worker starting", nil)
		if err := srv.Run(mux); err != nil {
			log.Fatalf("worker failed: %v", err)
		}
	}()

	return &asynqServer{Server: srv}
}

func registerHandlers(mux *asynq.ServeMux, deps *workerDeps) {
	mux.HandleFunc(shared.TypeEmailVerification, handlers.EmailVerificationHandler(deps.EmailSvc, deps.Publisher))
	mux.HandleFunc(shared.TypeEmailPasswordReset, handlers.EmailResetPasswordHandler(deps.EmailSvc, deps.Publisher))
	mux.HandleFunc(shared.TypeEmailPasswordChanged, handlers.EmailPasswordChangedHandler(deps.EmailSvc, deps.Publisher))
	mux.HandleFunc(shared.TypeEmailAccountApproval, handlers.EmailAccountApprovalHandler(deps.EmailSvc, deps.Publisher))

	reservationEvents := handlers.ReservationEventHandler(deps.Cache, deps.Publisher)
	mux.HandleFunc(shared.TypeReservationCreated, reservationEvents)
	mux.HandleFunc(shared.TypeReservationConfirmed, reservationEvents)
	mux.HandleFunc(shared.TypeReservationCancelled, reservationEvents)
	mux.HandleFunc(shared.TypeReservationExpired, reservationEvents)

	mux.HandleFunc(shared.TypeSweeperTick, handlers.SweepTickHandler(deps.Sweeper))
}

func (s *asynqServer) Shutdown() {
	logger.Info("stopping task consumer", nil)
	s.Server.Shutdown()
}
