package service

import (
	"context"
	"time"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/internal/domains/item/repository"
	"flashsale-backend/pkg/database"
	"flashsale-backend/pkg/logger"

	"github.com/google/uuid"
)

// StockAccountant enforces the stock invariant. Each operation locks the item
// row before reading its counts and applies exactly one column-relative delta.
// Callers supply the transaction; the accountant never opens one itself so the
// reservation engine can compose it with reservation row writes.
type StockAccountant struct {
	items repository.RepositoryInterface
}

func NewStockAccountant(items repository.RepositoryInterface) *StockAccountant {
	return &StockAccountant{items: items}
}

// Reserve places a hold of qty units.
// Returns ErrItemNotFound, ErrItemInactive, or ErrInsufficientStock.
func (a *StockAccountant) Reserve(ctx context.Context, q database.DBTX, itemID uuid.UUID, qty int, now time.Time) (*model.Item, error) {
	item, err := a.items.GetForUpdate(ctx, q, itemID)
	if err != nil {
		return nil, err
	}

	if !item.Purchasable(now) {
		return nil, model.ErrItemInactive
	}

	if item.AvailableStock < qty {
		return nil, model.ErrInsufficientStock
	}

	if err := a.items.ApplyStockDelta(ctx, q, itemID, 0, qty); err != nil {
		return nil, err
	}

	item.ReservedStock += qty
	item.AvailableStock -= qty
	return item, nil
}

// Release returns a hold of qty units to the available pool. A release can
// never drive reserved_stock negative: an oversized qty is clamped to the
// current reserved count and the anomaly logged.
// Returns ErrItemNotFound.
func (a *StockAccountant) Release(ctx context.Context, q database.DBTX, itemID uuid.UUID, qty int) (*model.Item, error) {
	item, err := a.items.GetForUpdate(ctx, q, itemID)
	if err != nil {
		return nil, err
	}

	release := qty
	if release > item.ReservedStock {
		logger.Warn("release exceeds reserved stock, clamping", map[string]interface{}{
			"item_id":        itemID.String(),
			"requested":      qty,
			"reserved_stock": item.ReservedStock,
		})
		release = item.ReservedStock
	}

	if release == 0 {
		return item, nil
	}

	if err := a.items.ApplyStockDelta(ctx, q, itemID, 0, -release); err != nil {
		return nil, err
	}

	item.ReservedStock -= release
	item.AvailableStock += release
	return item, nil
}

// Confirm converts a hold of qty units into a sale, decrementing both stock
// and reserved_stock.
// Returns ErrItemNotFound, ErrReservedShortfall, or ErrStockShortfall.
func (a *StockAccountant) Confirm(ctx context.Context, q database.DBTX, itemID uuid.UUID, qty int) (*model.Item, error) {
	item, err := a.items.GetForUpdate(ctx, q, itemID)
	if err != nil {
		return nil, err
	}

	if item.ReservedStock < qty {
		return nil, model.ErrReservedShortfall
	}
	if item.Stock < qty {
		return nil, model.ErrStockShortfall
	}

	if err := a.items.ApplyStockDelta(ctx, q, itemID, -qty, -qty); err != nil {
		return nil, err
	}

	item.Stock -= qty
	item.ReservedStock -= qty
	return item, nil
}

// Audit reports committed rows violating available = stock - reserved.
// Operational recovery from external drift; not part of the hot path.
func (a *StockAccountant) Audit(ctx context.Context) ([]model.AuditRow, error) {
	return a.items.Audit(ctx)
}

// Repair rewrites available_stock from the derived expression.
func (a *StockAccountant) Repair(ctx context.Context) (int64, error) {
	return a.items.Repair(ctx)
}
