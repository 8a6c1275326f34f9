package repository

import (
	"context"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
)

// RepositoryInterface is the item half of the storage gateway. Methods taking
// a database.DBTX participate in a caller-owned transaction; the rest run on
// the pool. All queries filter soft-deleted rows unless noted.
type RepositoryInterface interface {
	// Create inserts a new item.
	// Returns ErrSKUExists on a duplicate sku.
	Create(ctx context.Context, item *model.Item) error

	// GetByID retrieves an item.
	// Returns ErrItemNotFound if not exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// GetForUpdate locks the item row with SELECT ... FOR UPDATE and returns
	// its current state. Must be called before any read of the stock counts
	// in a stock-mutating transaction.
	// Returns ErrItemNotFound if not exists.
	GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Item, error)

	// ApplyStockDelta is the single permitted stock mutation. It issues one
	// column-relative statement adjusting stock and reserved_stock, rederives
	// available_stock, and bumps version. Deltas are never composed in
	// application memory.
	ApplyStockDelta(ctx context.Context, q database.DBTX, id uuid.UUID, deltaStock, deltaReserved int) error

	// Update applies non-stock field changes with an optimistic version check.
	// Returns ErrVersionMismatch when the row moved underneath the caller.
	Update(ctx context.Context, id uuid.UUID, req model.UpdateItemRequest) (*model.Item, error)

	// UpdateImageURL sets the item image after a successful object upload.
	UpdateImageURL(ctx context.Context, id uuid.UUID, url string) error

	// SoftDelete tombstones the item. The caller must have verified no
	// pending holds exist inside the same transaction.
	SoftDelete(ctx context.Context, q database.DBTX, id uuid.UUID) error

	// List returns a filtered page of items plus the total match count.
	List(ctx context.Context, req model.ListItemsRequest) ([]model.Item, int, error)

	// Stats aggregates item counts per status.
	Stats(ctx context.Context) (*model.ItemStats, error)

	// Audit reports rows violating available_stock = stock - reserved_stock.
	Audit(ctx context.Context) ([]model.AuditRow, error)

	// Repair rewrites available_stock from the derived expression in one
	// statement and returns the number of rows fixed.
	Repair(ctx context.Context) (int64, error)
}
