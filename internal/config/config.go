package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	SMTP        SMTPConfig
	MinIO       MinIOConfig
	Reservation ReservationConfig
	Sweeper     SweeperConfig
	RateLimit   RateLimitConfig
	Queue       QueueConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string
	MaxConns       int
	MinConns       int
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	TxDeadline     time.Duration
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ReservationConfig struct {
	// Lifetime is the interval between creation and expires_at.
	Lifetime time.Duration
	// DeadlockRetries bounds internal retries on transient storage errors.
	DeadlockRetries int
	// CodeRetries bounds reservation-code regeneration on collision.
	CodeRetries int
}

type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	// UnhealthyAfter marks the sweeper unhealthy when no successful tick
	// happened within this many intervals.
	UnhealthyAfter int
}

type RateLimitPolicyConfig struct {
	Window time.Duration
	Max    int64
}

type RateLimitConfig struct {
	General           RateLimitPolicyConfig
	Auth              RateLimitPolicyConfig
	ReservationCreate RateLimitPolicyConfig
}

type QueueConfig struct {
	Concurrency int
	MaxRetry    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Flashsale API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "flashsale"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       getEnvInt("DB_MAX_CONNS", 25),
			MinConns:       getEnvInt("DB_MIN_CONNS", 5),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			MaxRetries:     getEnvInt("DB_MAX_RETRIES", 5),
			RetryDelay:     getEnvDuration("DB_RETRY_DELAY", time.Second),
			TxDeadline:     getEnvDuration("DB_TX_DEADLINE", 5*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessExpiry: getEnvDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@flashsale.dev"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "flashsale"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Reservation: ReservationConfig{
			Lifetime:        getEnvDuration("RESERVATION_LIFETIME", 15*time.Minute),
			DeadlockRetries: getEnvInt("RESERVATION_DEADLOCK_RETRIES", 3),
			CodeRetries:     getEnvInt("RESERVATION_CODE_RETRIES", 8),
		},
		Sweeper: SweeperConfig{
			Interval:       getEnvDuration("SWEEPER_INTERVAL", time.Minute),
			BatchSize:      getEnvInt("SWEEPER_BATCH_SIZE", 200),
			UnhealthyAfter: getEnvInt("SWEEPER_UNHEALTHY_AFTER", 3),
		},
		RateLimit: RateLimitConfig{
			General:           RateLimitPolicyConfig{Window: getEnvDuration("RL_GENERAL_WINDOW", time.Minute), Max: int64(getEnvInt("RL_GENERAL_MAX", 100))},
			Auth:              RateLimitPolicyConfig{Window: getEnvDuration("RL_AUTH_WINDOW", time.Minute), Max: int64(getEnvInt("RL_AUTH_MAX", 10))},
			ReservationCreate: RateLimitPolicyConfig{Window: getEnvDuration("RL_RESERVE_WINDOW", time.Minute), Max: int64(getEnvInt("RL_RESERVE_MAX", 10))},
		},
		Queue: QueueConfig{
			Concurrency: getEnvInt("QUEUE_CONCURRENCY", 20),
			MaxRetry:    getEnvInt("QUEUE_MAX_RETRY", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks production-critical settings.
func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	if c.Reservation.Lifetime <= 0 {
		return fmt.Errorf("RESERVATION_LIFETIME must be positive")
	}
	if c.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("SWEEPER_BATCH_SIZE must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
