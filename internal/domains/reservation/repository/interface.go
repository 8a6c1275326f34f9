package repository

import (
	"context"
	"time"

	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
)

// RepositoryInterface is the reservation half of the storage gateway.
// Methods taking a database.DBTX participate in a caller-owned transaction.
type RepositoryInterface interface {
	// Insert persists a new pending reservation.
	// Returns ErrCodeExhausted wrapped over the driver error when the
	// reservation code collides.
	Insert(ctx context.Context, q database.DBTX, res *model.Reservation) error

	// GetByID retrieves a reservation.
	// Returns ErrReservationNotFound if not exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)

	// GetByCode retrieves a reservation by its human-facing code.
	GetByCode(ctx context.Context, code string) (*model.Reservation, error)

	// GetForUpdate locks the reservation row. Callers must already hold the
	// item row lock; the item-then-reservation order is fixed everywhere.
	GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Reservation, error)

	// MarkConfirmed moves a pending reservation to confirmed.
	MarkConfirmed(ctx context.Context, q database.DBTX, id uuid.UUID, at time.Time) error

	// MarkCancelled moves a pending reservation to cancelled, recording who
	// cancelled it and why.
	MarkCancelled(ctx context.Context, q database.DBTX, id uuid.UUID, by uuid.UUID, reason string, at time.Time) error

	// MarkExpired moves a pending reservation to expired. The WHERE clause
	// re-checks status and deadline so a concurrent confirm wins cleanly;
	// expired reports whether the row actually transitioned.
	MarkExpired(ctx context.Context, q database.DBTX, id uuid.UUID, now time.Time) (expired bool, err error)

	// SumUserActive returns the total quantity the user holds against the
	// item across pending and confirmed reservations. Runs inside the
	// caller's transaction after the item row is locked.
	SumUserActive(ctx context.Context, q database.DBTX, userID, itemID uuid.UUID) (int, error)

	// FindPendingExpired returns ids of pending reservations whose deadline
	// is strictly before now, oldest deadline first, capped at limit.
	FindPendingExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

	// CodeExists reports whether a reservation code is already taken.
	CodeExists(ctx context.Context, q database.DBTX, code string) (bool, error)

	// HasPendingByItem reports whether any pending reservation references
	// the item. Used to guard item deletion.
	HasPendingByItem(ctx context.Context, q database.DBTX, itemID uuid.UUID) (bool, error)

	// ListByUser returns the user's reservations, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, req model.ListReservationsRequest) ([]model.Reservation, int, error)

	// List returns reservations across all users with optional filters.
	List(ctx context.Context, req model.ListReservationsRequest) ([]model.Reservation, int, error)

	// Stats aggregates reservation counts per status, optionally scoped to
	// one user.
	Stats(ctx context.Context, userID *uuid.UUID) (*model.ReservationStats, error)
}
