package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// itemColumns keeps leading and trailing whitespace so it can be spliced
// between SELECT and FROM without gluing keywords together.
const itemColumns = `
	id, sku, name, price, original_price, stock, reserved_stock, available_stock,
	status, image_url, sale_start, sale_end, max_per_user, version,
	created_at, updated_at, deleted_at
`

// postgresRepository implements RepositoryInterface
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL item repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func scanItem(row pgx.Row) (*model.Item, error) {
	var item model.Item
	err := row.Scan(
		&item.ID,
		&item.SKU,
		&item.Name,
		&item.Price,
		&item.OriginalPrice,
		&item.Stock,
		&item.ReservedStock,
		&item.AvailableStock,
		&item.Status,
		&item.ImageURL,
		&item.SaleStart,
		&item.SaleEnd,
		&item.MaxPerUser,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Create implements RepositoryInterface.Create
func (r *postgresRepository) Create(ctx context.Context, item *model.Item) error {
	query := `
		INSERT INTO items (
			id, sku, name, price, original_price, stock, reserved_stock,
			available_stock, status, sale_start, sale_end, max_per_user, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, 0, $6, $7, $8, $9, $10, 1
		)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		item.ID,
		item.SKU,
		item.Name,
		item.Price,
		item.OriginalPrice,
		item.Stock,
		item.Status,
		item.SaleStart,
		item.SaleEnd,
		item.MaxPerUser,
	).Scan(&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.ErrSKUExists
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}

	item.ReservedStock = 0
	item.AvailableStock = item.Stock
	item.Version = 1

	return nil
}

// GetByID implements RepositoryInterface.GetByID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	query := `SELECT` + itemColumns + `FROM items WHERE id = $1 AND deleted_at IS NULL`

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item by id: %w", err)
	}

	return item, nil
}

// GetForUpdate implements RepositoryInterface.GetForUpdate
func (r *postgresRepository) GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Item, error) {
	query := `SELECT` + itemColumns + `FROM items WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	item, err := scanItem(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to lock item for update: %w", err)
	}

	return item, nil
}

// ApplyStockDelta implements RepositoryInterface.ApplyStockDelta.
// available_stock is rederived inside the statement so concurrent
// transactions can never commit a stale application-computed value.
// Status flips between active and out_of_stock as availability crosses zero.
func (r *postgresRepository) ApplyStockDelta(ctx context.Context, q database.DBTX, id uuid.UUID, deltaStock, deltaReserved int) error {
	query := `
		UPDATE items
		SET stock = stock + $2,
		    reserved_stock = reserved_stock + $3,
		    available_stock = (stock + $2) - (reserved_stock + $3),
		    status = CASE
		        WHEN status = 'active' AND (stock + $2) - (reserved_stock + $3) <= 0 THEN 'out_of_stock'
		        WHEN status = 'out_of_stock' AND (stock + $2) - (reserved_stock + $3) > 0 THEN 'active'
		        ELSE status
		    END,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := q.Exec(ctx, query, id, deltaStock, deltaReserved)
	if err != nil {
		return fmt.Errorf("failed to apply stock delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}

	return nil
}

// Update implements RepositoryInterface.Update
func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, req model.UpdateItemRequest) (*model.Item, error) {
	sets := []string{"version = version + 1", "updated_at = now()"}
	args := []any{id, req.Version}
	idx := 3

	addSet := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.Price != nil {
		addSet("price", *req.Price)
	}
	if req.OriginalPrice != nil {
		addSet("original_price", *req.OriginalPrice)
	}
	if req.Status != nil {
		addSet("status", *req.Status)
	}
	if req.SaleStart != nil {
		addSet("sale_start", *req.SaleStart)
	}
	if req.SaleEnd != nil {
		addSet("sale_end", *req.SaleEnd)
	}
	if req.MaxPerUser != nil {
		addSet("max_per_user", *req.MaxPerUser)
	}

	query := fmt.Sprintf(`
		UPDATE items
		SET %s
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING`+itemColumns, strings.Join(sets, ", "))

	item, err := scanItem(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing row from a stale version.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, model.ErrVersionMismatch
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return item, nil
}

// UpdateImageURL implements RepositoryInterface.UpdateImageURL
func (r *postgresRepository) UpdateImageURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE items SET image_url = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id, url)
	if err != nil {
		return fmt.Errorf("failed to update image url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

// SoftDelete implements RepositoryInterface.SoftDelete
func (r *postgresRepository) SoftDelete(ctx context.Context, q database.DBTX, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`UPDATE items SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`,
		id)
	if err != nil {
		return fmt.Errorf("failed to soft delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrItemNotFound
	}
	return nil
}

// List implements RepositoryInterface.List
func (r *postgresRepository) List(ctx context.Context, req model.ListItemsRequest) ([]model.Item, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}
	idx := 1

	if req.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, *req.Status)
		idx++
	}
	if req.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", idx, idx))
		args = append(args, "%"+req.Search+"%")
		idx++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM items WHERE " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM items
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, itemColumns, whereClause, idx, idx+1)
	args = append(args, req.Limit, (req.Page-1)*req.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, total, nil
}

// Stats implements RepositoryInterface.Stats
func (r *postgresRepository) Stats(ctx context.Context) (*model.ItemStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'inactive'),
			COUNT(*) FILTER (WHERE status = 'out_of_stock')
		FROM items
		WHERE deleted_at IS NULL
	`

	var stats model.ItemStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Active, &stats.Inactive, &stats.OutOfStock)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate item stats: %w", err)
	}

	return &stats, nil
}

// Audit implements RepositoryInterface.Audit
func (r *postgresRepository) Audit(ctx context.Context) ([]model.AuditRow, error) {
	query := `
		SELECT id, sku, stock, reserved_stock, available_stock, stock - reserved_stock
		FROM items
		WHERE available_stock <> stock - reserved_stock AND deleted_at IS NULL
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to audit stock: %w", err)
	}
	defer rows.Close()

	drifted := make([]model.AuditRow, 0)
	for rows.Next() {
		var row model.AuditRow
		if err := rows.Scan(&row.ItemID, &row.SKU, &row.Stock, &row.ReservedStock, &row.AvailableStock, &row.Expected); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		drifted = append(drifted, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}

	return drifted, nil
}

// Repair implements RepositoryInterface.Repair
func (r *postgresRepository) Repair(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE items
		SET available_stock = stock - reserved_stock, updated_at = now()
		WHERE available_stock <> stock - reserved_stock AND deleted_at IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to repair stock: %w", err)
	}
	return tag.RowsAffected(), nil
}
