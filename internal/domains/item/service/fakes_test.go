package service

import (
	"context"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
)

// fakeItemRepo is an in-memory stand-in for the Postgres repository. It
// mirrors the SQL semantics that matter for the services: column-relative
// deltas, derived available_stock and the active/out_of_stock status flip.
type fakeItemRepo struct {
	items    map[uuid.UUID]*model.Item
	deltaErr error
}

func newFakeItemRepo(items ...*model.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: make(map[uuid.UUID]*model.Item)}
	for _, item := range items {
		copied := *item
		r.items[item.ID] = &copied
	}
	return r
}

func (r *fakeItemRepo) get(id uuid.UUID) (*model.Item, error) {
	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return nil, model.ErrItemNotFound
	}
	return item, nil
}

func (r *fakeItemRepo) Create(ctx context.Context, item *model.Item) error {
	for _, existing := range r.items {
		if existing.SKU == item.SKU {
			return model.ErrSKUExists
		}
	}
	item.ReservedStock = 0
	item.AvailableStock = item.Stock
	item.Version = 1
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	item, err := r.get(id)
	if err != nil {
		return nil, err
	}
	copied := *item
	return &copied, nil
}

func (r *fakeItemRepo) GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeItemRepo) ApplyStockDelta(ctx context.Context, q database.DBTX, id uuid.UUID, deltaStock, deltaReserved int) error {
	if r.deltaErr != nil {
		return r.deltaErr
	}
	item, err := r.get(id)
	if err != nil {
		return err
	}
	item.Stock += deltaStock
	item.ReservedStock += deltaReserved
	item.AvailableStock = item.Stock - item.ReservedStock
	switch {
	case item.Status == model.StatusActive && item.AvailableStock <= 0:
		item.Status = model.StatusOutOfStock
	case item.Status == model.StatusOutOfStock && item.AvailableStock > 0:
		item.Status = model.StatusActive
	}
	item.Version++
	return nil
}

func (r *fakeItemRepo) Update(ctx context.Context, id uuid.UUID, req model.UpdateItemRequest) (*model.Item, error) {
	item, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if item.Version != req.Version {
		return nil, model.ErrVersionMismatch
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Status != nil {
		item.Status = *req.Status
	}
	if req.MaxPerUser != nil {
		item.MaxPerUser = *req.MaxPerUser
	}
	item.Version++
	copied := *item
	return &copied, nil
}

func (r *fakeItemRepo) UpdateImageURL(ctx context.Context, id uuid.UUID, url string) error {
	item, err := r.get(id)
	if err != nil {
		return err
	}
	item.ImageURL = &url
	return nil
}

func (r *fakeItemRepo) SoftDelete(ctx context.Context, q database.DBTX, id uuid.UUID) error {
	item, err := r.get(id)
	if err != nil {
		return err
	}
	now := item.UpdatedAt
	item.DeletedAt = &now
	return nil
}

func (r *fakeItemRepo) List(ctx context.Context, req model.ListItemsRequest) ([]model.Item, int, error) {
	out := make([]model.Item, 0, len(r.items))
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (r *fakeItemRepo) Stats(ctx context.Context) (*model.ItemStats, error) {
	stats := &model.ItemStats{}
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		stats.Total++
		switch item.Status {
		case model.StatusActive:
			stats.Active++
		case model.StatusInactive:
			stats.Inactive++
		case model.StatusOutOfStock:
			stats.OutOfStock++
		}
	}
	return stats, nil
}

func (r *fakeItemRepo) Audit(ctx context.Context) ([]model.AuditRow, error) {
	drifted := make([]model.AuditRow, 0)
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		if item.AvailableStock != item.Stock-item.ReservedStock {
			drifted = append(drifted, model.AuditRow{
				ItemID:         item.ID,
				SKU:            item.SKU,
				Stock:          item.Stock,
				ReservedStock:  item.ReservedStock,
				AvailableStock: item.AvailableStock,
				Expected:       item.Stock - item.ReservedStock,
			})
		}
	}
	return drifted, nil
}

func (r *fakeItemRepo) Repair(ctx context.Context) (int64, error) {
	var fixed int64
	for _, item := range r.items {
		if item.DeletedAt != nil {
			continue
		}
		if item.AvailableStock != item.Stock-item.ReservedStock {
			item.AvailableStock = item.Stock - item.ReservedStock
			fixed++
		}
	}
	return fixed, nil
}

// fakeTxRunner runs the function directly. The fakes ignore the DBTX
// argument, so nil is fine.
type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

type fakeHoldChecker struct {
	hasPending bool
	err        error
}

func (f *fakeHoldChecker) HasPendingByItem(ctx context.Context, q database.DBTX, itemID uuid.UUID) (bool, error) {
	return f.hasPending, f.err
}

type fakeStorage struct {
	uploaded map[string][]byte
	err      error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded[key] = data
	return "http://storage.local/flashsale/" + key, nil
}
