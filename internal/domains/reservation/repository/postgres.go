package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reservationColumns keeps leading and trailing whitespace so it can be
// spliced between SELECT and FROM without gluing keywords together.
const reservationColumns = `
	id, code, user_id, item_id, quantity, unit_price, total_price, status,
	expires_at, confirmed_at, cancelled_at, cancel_reason, cancelled_by,
	created_at, updated_at
`

// postgresRepository implements RepositoryInterface
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL reservation repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.Code,
		&res.UserID,
		&res.ItemID,
		&res.Quantity,
		&res.UnitPrice,
		&res.TotalPrice,
		&res.Status,
		&res.ExpiresAt,
		&res.ConfirmedAt,
		&res.CancelledAt,
		&res.CancelReason,
		&res.CancelledBy,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Insert implements RepositoryInterface.Insert
func (r *postgresRepository) Insert(ctx context.Context, q database.DBTX, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, code, user_id, item_id, quantity, unit_price, total_price,
			status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		res.ID,
		res.Code,
		res.UserID,
		res.ItemID,
		res.Quantity,
		res.UnitPrice,
		res.TotalPrice,
		res.Status,
		res.ExpiresAt,
	).Scan(&res.CreatedAt, &res.UpdatedAt)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %w", model.ErrCodeExhausted, err)
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	return nil
}

// GetByID implements RepositoryInterface.GetByID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + `FROM reservations WHERE id = $1`

	res, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation by id: %w", err)
	}

	return res, nil
}

// GetByCode implements RepositoryInterface.GetByCode
func (r *postgresRepository) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + `FROM reservations WHERE code = $1`

	res, err := scanReservation(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation by code: %w", err)
	}

	return res, nil
}

// GetForUpdate implements RepositoryInterface.GetForUpdate
func (r *postgresRepository) GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + `FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to lock reservation for update: %w", err)
	}

	return res, nil
}

// MarkConfirmed implements RepositoryInterface.MarkConfirmed
func (r *postgresRepository) MarkConfirmed(ctx context.Context, q database.DBTX, id uuid.UUID, at time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE reservations
		SET status = 'confirmed', confirmed_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to confirm reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotPending
	}
	return nil
}

// MarkCancelled implements RepositoryInterface.MarkCancelled
func (r *postgresRepository) MarkCancelled(ctx context.Context, q database.DBTX, id uuid.UUID, by uuid.UUID, reason string, at time.Time) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	tag, err := q.Exec(ctx, `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = $2, cancelled_by = $3,
		    cancel_reason = $4, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, at, by, reasonPtr)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotPending
	}
	return nil
}

// MarkExpired implements RepositoryInterface.MarkExpired
func (r *postgresRepository) MarkExpired(ctx context.Context, q database.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE reservations
		SET status = 'expired', updated_at = now()
		WHERE id = $1 AND status = 'pending' AND expires_at < $2
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to expire reservation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SumUserActive implements RepositoryInterface.SumUserActive
func (r *postgresRepository) SumUserActive(ctx context.Context, q database.DBTX, userID, itemID uuid.UUID) (int, error) {
	var total int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM reservations
		WHERE user_id = $1 AND item_id = $2 AND status IN ('pending', 'confirmed')
	`, userID, itemID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum active reservations: %w", err)
	}
	return total, nil
}

// FindPendingExpired implements RepositoryInterface.FindPendingExpired
func (r *postgresRepository) FindPendingExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM reservations
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired reservations: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired reservations: %w", err)
	}

	return ids, nil
}

// CodeExists implements RepositoryInterface.CodeExists
func (r *postgresRepository) CodeExists(ctx context.Context, q database.DBTX, code string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE code = $1)`,
		code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation code: %w", err)
	}
	return exists, nil
}

// HasPendingByItem implements RepositoryInterface.HasPendingByItem
func (r *postgresRepository) HasPendingByItem(ctx context.Context, q database.DBTX, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE item_id = $1 AND status = 'pending')`,
		itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending reservations: %w", err)
	}
	return exists, nil
}

// ListByUser implements RepositoryInterface.ListByUser
func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	scoped := req
	scoped.UserID = &userID
	return r.List(ctx, scoped)
}

// List implements RepositoryInterface.List
func (r *postgresRepository) List(ctx context.Context, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	idx := 1

	if req.UserID != nil {
		where = append(where, fmt.Sprintf("user_id = $%d", idx))
		args = append(args, *req.UserID)
		idx++
	}
	if req.ItemID != nil {
		where = append(where, fmt.Sprintf("item_id = $%d", idx))
		args = append(args, *req.ItemID)
		idx++
	}
	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, *req.Status)
		idx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM reservations WHERE " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM reservations
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, reservationColumns, whereClause, idx, idx+1)
	args = append(args, req.Limit, (req.Page-1)*req.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return reservations, total, nil
}

// Stats implements RepositoryInterface.Stats
func (r *postgresRepository) Stats(ctx context.Context, userID *uuid.UUID) (*model.ReservationStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COALESCE(SUM(total_price) FILTER (WHERE status = 'confirmed'), 0)
		FROM reservations
		WHERE ($1::uuid IS NULL OR user_id = $1)
	`

	var stats model.ReservationStats
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total, &stats.Pending, &stats.Confirmed, &stats.Cancelled, &stats.Expired,
		&stats.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reservation stats: %w", err)
	}

	return &stats, nil
}
