package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 15*time.Minute, cfg.Reservation.Lifetime)
	assert.Equal(t, 3, cfg.Reservation.DeadlockRetries)
	assert.Equal(t, time.Minute, cfg.Sweeper.Interval)
	assert.Equal(t, 200, cfg.Sweeper.BatchSize)
	assert.Equal(t, 3, cfg.Sweeper.UnhealthyAfter)
	assert.Equal(t, int64(10), cfg.RateLimit.ReservationCreate.Max)
	assert.Equal(t, 20, cfg.Queue.Concurrency)
	assert.False(t, cfg.MinIO.UseSSL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RESERVATION_LIFETIME", "5m")
	t.Setenv("SWEEPER_BATCH_SIZE", "50")
	t.Setenv("RL_RESERVE_MAX", "3")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Reservation.Lifetime)
	assert.Equal(t, 50, cfg.Sweeper.BatchSize)
	assert.Equal(t, int64(3), cfg.RateLimit.ReservationCreate.Max)
	assert.True(t, cfg.MinIO.UseSSL)
}

func TestLoadBadBoolFallsBack(t *testing.T) {
	t.Setenv("MINIO_USE_SSL", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MinIO.UseSSL)
}

func TestValidate(t *testing.T) {
	t.Run("production requires real secrets", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("production requires a db password", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "a-real-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PASSWORD")
	})

	t.Run("production with secrets set", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "a-real-secret")
		t.Setenv("DB_PASSWORD", "hunter2")

		_, err := Load()
		assert.NoError(t, err)
	})

	t.Run("non-positive lifetime rejected", func(t *testing.T) {
		t.Setenv("RESERVATION_LIFETIME", "-1m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RESERVATION_LIFETIME")
	})

	t.Run("non-positive batch size rejected", func(t *testing.T) {
		t.Setenv("SWEEPER_BATCH_SIZE", "0")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SWEEPER_BATCH_SIZE")
	})
}
