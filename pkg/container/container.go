package container

import (
	"context"
	"fmt"
	"time"

	"flashsale-backend/internal/config"
	itemHandler "flashsale-backend/internal/domains/item/handler"
	itemRepo "flashsale-backend/internal/domains/item/repository"
	itemService "flashsale-backend/internal/domains/item/service"
	resHandler "flashsale-backend/internal/domains/reservation/handler"
	resRepo "flashsale-backend/internal/domains/reservation/repository"
	resService "flashsale-backend/internal/domains/reservation/service"
	infraCache "flashsale-backend/internal/infrastructure/cache"
	"flashsale-backend/internal/infrastructure/database"
	"flashsale-backend/internal/infrastructure/queue"
	"flashsale-backend/internal/infrastructure/storage"
	"flashsale-backend/pkg/cache"
	pkgdb "flashsale-backend/pkg/database"
	"flashsale-backend/pkg/jwt"
	"flashsale-backend/pkg/logger"

	"github.com/hibiken/asynq"
)

// Container wires the API process dependency graph. Initialization order is
// config, infrastructure, repositories, services, handlers; Cleanup tears
// down in reverse.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager
	Storage    *storage.MinIOStorage
	Publisher  *queue.Publisher

	TxManager *pkgdb.TxManager

	ItemRepo        itemRepo.RepositoryInterface
	ReservationRepo resRepo.RepositoryInterface

	StockAccountant    *itemService.StockAccountant
	ItemService        itemService.ServiceInterface
	ReservationService resService.ServiceInterface

	ItemHandler        *itemHandler.Handler
	ReservationHandler *resHandler.Handler

	redisCache *infraCache.RedisCache
}

func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Info("config loaded", map[string]interface{}{"environment": cfg.App.Environment})

	db := database.NewPostgresDB(&cfg.Database)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	logger.Info("database connected", nil)

	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.redisCache = redisCache
	c.Cache = redisCache
	logger.Info("redis connected", nil)

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry)

	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = minioStorage
	logger.Info("object storage ready", map[string]interface{}{"bucket": cfg.MinIO.Bucket})

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.Publisher = queue.NewPublisher(asynqClient)

	c.TxManager = pkgdb.NewTxManager(db.Pool, cfg.Database.TxDeadline)

	c.ItemRepo = itemRepo.NewRepository(db.Pool)
	c.ReservationRepo = resRepo.NewRepository(db.Pool)

	c.StockAccountant = itemService.NewStockAccountant(c.ItemRepo)
	c.ItemService = itemService.NewItemService(c.ItemRepo, c.ReservationRepo, c.Storage, c.TxManager)
	c.ReservationService = resService.NewReservationService(
		c.TxManager,
		c.ItemRepo,
		c.StockAccountant,
		c.ReservationRepo,
		c.Publisher,
		resService.Options{
			Lifetime:        cfg.Reservation.Lifetime,
			DeadlockRetries: cfg.Reservation.DeadlockRetries,
			CodeRetries:     cfg.Reservation.CodeRetries,
		},
	)

	unhealthyAfter := time.Duration(cfg.Sweeper.UnhealthyAfter) * cfg.Sweeper.Interval
	c.ItemHandler = itemHandler.NewHandler(c.ItemService, c.StockAccountant)
	c.ReservationHandler = resHandler.NewHandler(c.ReservationService, c.Publisher, c.Cache, unhealthyAfter)

	logger.Info("container initialized", nil)
	return c, nil
}

// Cleanup releases resources in reverse initialization order.
func (c *Container) Cleanup() {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Error("failed to close queue client", err)
		}
	}
	if c.redisCache != nil {
		if err := c.redisCache.Close(); err != nil {
			logger.Error("failed to close redis", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}
	logger.Info("container cleaned up", nil)
}
