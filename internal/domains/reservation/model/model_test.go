package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationDeadlines(t *testing.T) {
	deadline := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("pending before the deadline", func(t *testing.T) {
		r := &Reservation{Status: StatusPending, ExpiresAt: deadline}
		now := deadline.Add(-time.Minute)
		assert.True(t, r.ConfirmableAt(now))
		assert.False(t, r.SweepableAt(now))
	})

	t.Run("the exact deadline instant favors the buyer", func(t *testing.T) {
		r := &Reservation{Status: StatusPending, ExpiresAt: deadline}
		assert.True(t, r.ConfirmableAt(deadline))
		assert.False(t, r.SweepableAt(deadline))
	})

	t.Run("strictly past the deadline", func(t *testing.T) {
		r := &Reservation{Status: StatusPending, ExpiresAt: deadline}
		now := deadline.Add(time.Nanosecond)
		assert.False(t, r.ConfirmableAt(now))
		assert.True(t, r.SweepableAt(now))
	})

	t.Run("terminal states are neither", func(t *testing.T) {
		now := deadline.Add(-time.Hour)
		for _, status := range []ReservationStatus{StatusConfirmed, StatusCancelled, StatusExpired} {
			r := &Reservation{Status: status, ExpiresAt: deadline}
			assert.True(t, r.Terminal())
			assert.False(t, r.ConfirmableAt(now))
			assert.False(t, r.SweepableAt(deadline.Add(time.Hour)))
		}
	})

	t.Run("pending is not terminal", func(t *testing.T) {
		r := &Reservation{Status: StatusPending}
		assert.False(t, r.Terminal())
	})
}
