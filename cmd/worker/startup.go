package main

import (
	"context"
	"fmt"
	"time"

	"flashsale-backend/internal/config"
	itemRepo "flashsale-backend/internal/domains/item/repository"
	itemService "flashsale-backend/internal/domains/item/service"
	resRepo "flashsale-backend/internal/domains/reservation/repository"
	resService "flashsale-backend/internal/domains/reservation/service"
	infraCache "flashsale-backend/internal/infrastructure/cache"
	"flashsale-backend/internal/infrastructure/database"
	"flashsale-backend/internal/infrastructure/email"
	"flashsale-backend/internal/infrastructure/queue"
	"flashsale-backend/pkg/cache"
	pkgdb "flashsale-backend/pkg/database"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// workerDeps is the worker's slice of the dependency graph. The worker never
// serves HTTP, so it skips the JWT manager, object storage and handlers.
type workerDeps struct {
	Config    *config.Config
	DB        *database.PostgresDB
	Cache     cache.Cache
	Publisher *queue.Publisher
	EmailSvc  email.EmailService
	Sweeper   *resService.Sweeper

	redisOpt   asynq.RedisClientOpt
	redisCache *infraCache.RedisCache
}

func initializeDependencies() (*workerDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.NewPostgresDB(&cfg.Database)
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	publisher := queue.NewPublisher(asynq.NewClient(redisOpt))

	txManager := pkgdb.NewTxManager(db.Pool, cfg.Database.TxDeadline)
	items := itemRepo.NewRepository(db.Pool)
	reservations := resRepo.NewRepository(db.Pool)
	accountant := itemService.NewStockAccountant(items)

	engine := resService.NewReservationService(
		txManager,
		items,
		accountant,
		reservations,
		publisher,
		resService.Options{
			Lifetime:        cfg.Reservation.Lifetime,
			DeadlockRetries: cfg.Reservation.DeadlockRetries,
			CodeRetries:     cfg.Reservation.CodeRetries,
		},
	)

	sweeper := resService.NewSweeper(engine, reservations, redisCache, resService.SweeperOptions{
		BatchSize:      cfg.Sweeper.BatchSize,
		Interval:       cfg.Sweeper.Interval,
		UnhealthyAfter: time.Duration(cfg.Sweeper.UnhealthyAfter) * cfg.Sweeper.Interval,
	})

	emailSvc := email.NewSMTPEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
	)

	logger.Info("worker dependencies initialized", map[string]interface{}{
		"sweep_interval":   cfg.Sweeper.Interval.String(),
		"sweep_batch_size": cfg.Sweeper.BatchSize,
	})

	return &workerDeps{
		Config:     cfg,
		DB:         db,
		Cache:      redisCache,
		Publisher:  publisher,
		EmailSvc:   emailSvc,
		Sweeper:    sweeper,
		redisOpt:   redisOpt,
		redisCache: redisCache,
	}, nil
}

func (d *workerDeps) Cleanup() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.Error("failed to close queue client", err)
		}
	}
	if d.redisCache != nil {
		if err := d.redisCache.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}
}
