package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a hold.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusExpired   ReservationStatus = "expired"
)

// Reservation is a time-limited hold on item stock. Pending is the only
// non-terminal state; confirmed, cancelled and expired rows never change
// again. Prices are snapshotted at creation so later item edits do not
// reprice existing holds.
type Reservation struct {
	ID           uuid.UUID         `json:"id"`
	Code         string            `json:"code"`
	UserID       uuid.UUID         `json:"user_id"`
	ItemID       uuid.UUID         `json:"item_id"`
	Quantity     int               `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	TotalPrice   decimal.Decimal   `json:"total_price"`
	Status       ReservationStatus `json:"status"`
	ExpiresAt    time.Time         `json:"expires_at"`
	ConfirmedAt  *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason *string           `json:"cancel_reason,omitempty"`
	CancelledBy  *uuid.UUID        `json:"cancelled_by,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Terminal reports whether the reservation reached a final state.
func (r *Reservation) Terminal() bool {
	return r.Status != StatusPending
}

// ConfirmableAt reports whether the hold can still be confirmed at the
// given instant. A hold expiring exactly now is still confirmable; only
// strictly after the deadline is it lost.
func (r *Reservation) ConfirmableAt(now time.Time) bool {
	return r.Status == StatusPending && !now.After(r.ExpiresAt)
}

// SweepableAt reports whether the sweeper may expire the hold. Strictly
// past the deadline only, so a hold is never both confirmable and
// sweepable at the same instant.
func (r *Reservation) SweepableAt(now time.Time) bool {
	return r.Status == StatusPending && r.ExpiresAt.Before(now)
}

// ReservationStats aggregates counts per status, optionally scoped to a
// user. TotalRevenue sums total_price over confirmed reservations only;
// pending holds are not revenue yet and cancelled or expired ones never
// became any.
type ReservationStats struct {
	Total        int             `json:"total"`
	Pending      int             `json:"pending"`
	Confirmed    int             `json:"confirmed"`
	Cancelled    int             `json:"cancelled"`
	Expired      int             `json:"expired"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// SweepResult summarizes one sweeper pass.
type SweepResult struct {
	Scanned  int           `json:"scanned"`
	Expired  int           `json:"expired"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"-"`
	Skipped  bool          `json:"skipped"`
}

// SweeperStatus is the persisted health snapshot of the sweeper loop.
type SweeperStatus struct {
	Running        bool      `json:"running"`
	LastRunAt      time.Time `json:"last_run_at"`
	LastSuccessAt  time.Time `json:"last_success_at"`
	LastScanned    int       `json:"last_scanned"`
	LastExpired    int       `json:"last_expired"`
	LastFailed     int       `json:"last_failed"`
	LastDurationMS int64     `json:"last_duration_ms"`
	TotalRuns      int64     `json:"total_runs"`
	TotalExpired   int64     `json:"total_expired"`
	TotalFailed    int64     `json:"total_failed"`
}
