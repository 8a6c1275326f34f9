package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	itemmodel "flashsale-backend/internal/domains/item/model"
	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// fakeItemRepo covers the methods the reservation engine touches. Catalog
// management methods are not exercised here.
type fakeItemRepo struct {
	items map[uuid.UUID]*itemmodel.Item
}

func newFakeItemRepo(items ...*itemmodel.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: make(map[uuid.UUID]*itemmodel.Item)}
	for _, item := range items {
		copied := *item
		r.items[item.ID] = &copied
	}
	return r
}

func (r *fakeItemRepo) get(id uuid.UUID) (*itemmodel.Item, error) {
	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return nil, itemmodel.ErrItemNotFound
	}
	return item, nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*itemmodel.Item, error) {
	item, err := r.get(id)
	if err != nil {
		return nil, err
	}
	copied := *item
	return &copied, nil
}

func (r *fakeItemRepo) GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*itemmodel.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeItemRepo) ApplyStockDelta(ctx context.Context, q database.DBTX, id uuid.UUID, deltaStock, deltaReserved int) error {
	item, err := r.get(id)
	if err != nil {
		return err
	}
	item.Stock += deltaStock
	item.ReservedStock += deltaReserved
	item.AvailableStock = item.Stock - item.ReservedStock
	switch {
	case item.Status == itemmodel.StatusActive && item.AvailableStock <= 0:
		item.Status = itemmodel.StatusOutOfStock
	case item.Status == itemmodel.StatusOutOfStock && item.AvailableStock > 0:
		item.Status = itemmodel.StatusActive
	}
	item.Version++
	return nil
}

func (r *fakeItemRepo) Create(ctx context.Context, item *itemmodel.Item) error {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) Update(ctx context.Context, id uuid.UUID, req itemmodel.UpdateItemRequest) (*itemmodel.Item, error) {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) UpdateImageURL(ctx context.Context, id uuid.UUID, url string) error {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) SoftDelete(ctx context.Context, q database.DBTX, id uuid.UUID) error {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) List(ctx context.Context, req itemmodel.ListItemsRequest) ([]itemmodel.Item, int, error) {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) Stats(ctx context.Context) (*itemmodel.ItemStats, error) {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) Audit(ctx context.Context) ([]itemmodel.AuditRow, error) {
	panic("not used by reservation tests")
}

func (r *fakeItemRepo) Repair(ctx context.Context) (int64, error) {
	panic("not used by reservation tests")
}

// fakeReservationRepo keeps rows in memory. codeCollisions makes the first n
// CodeExists calls report a collision.
type fakeReservationRepo struct {
	rows           map[uuid.UUID]*model.Reservation
	codeCollisions int
	codeChecks     int
}

func newFakeReservationRepo(rows ...*model.Reservation) *fakeReservationRepo {
	r := &fakeReservationRepo{rows: make(map[uuid.UUID]*model.Reservation)}
	for _, row := range rows {
		copied := *row
		r.rows[row.ID] = &copied
	}
	return r
}

func (r *fakeReservationRepo) Insert(ctx context.Context, q database.DBTX, res *model.Reservation) error {
	copied := *res
	r.rows[res.ID] = &copied
	return nil
}

func (r *fakeReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, model.ErrReservationNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeReservationRepo) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	for _, row := range r.rows {
		if row.Code == code {
			copied := *row
			return &copied, nil
		}
	}
	return nil, model.ErrReservationNotFound
}

func (r *fakeReservationRepo) GetForUpdate(ctx context.Context, q database.DBTX, id uuid.UUID) (*model.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeReservationRepo) MarkConfirmed(ctx context.Context, q database.DBTX, id uuid.UUID, at time.Time) error {
	row, ok := r.rows[id]
	if !ok || row.Status != model.StatusPending {
		return model.ErrNotPending
	}
	row.Status = model.StatusConfirmed
	row.ConfirmedAt = &at
	return nil
}

func (r *fakeReservationRepo) MarkCancelled(ctx context.Context, q database.DBTX, id uuid.UUID, by uuid.UUID, reason string, at time.Time) error {
	row, ok := r.rows[id]
	if !ok || row.Status != model.StatusPending {
		return model.ErrNotPending
	}
	row.Status = model.StatusCancelled
	row.CancelledAt = &at
	row.CancelledBy = &by
	if reason != "" {
		row.CancelReason = &reason
	}
	return nil
}

func (r *fakeReservationRepo) MarkExpired(ctx context.Context, q database.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	row, ok := r.rows[id]
	if !ok || row.Status != model.StatusPending || !row.ExpiresAt.Before(now) {
		return false, nil
	}
	row.Status = model.StatusExpired
	return true, nil
}

func (r *fakeReservationRepo) SumUserActive(ctx context.Context, q database.DBTX, userID, itemID uuid.UUID) (int, error) {
	total := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.ItemID == itemID &&
			(row.Status == model.StatusPending || row.Status == model.StatusConfirmed) {
			total += row.Quantity
		}
	}
	return total, nil
}

func (r *fakeReservationRepo) FindPendingExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for _, row := range r.rows {
		if row.Status == model.StatusPending && row.ExpiresAt.Before(now) {
			ids = append(ids, row.ID)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (r *fakeReservationRepo) CodeExists(ctx context.Context, q database.DBTX, code string) (bool, error) {
	r.codeChecks++
	if r.codeChecks <= r.codeCollisions {
		return true, nil
	}
	return false, nil
}

func (r *fakeReservationRepo) HasPendingByItem(ctx context.Context, q database.DBTX, itemID uuid.UUID) (bool, error) {
	for _, row := range r.rows {
		if row.ItemID == itemID && row.Status == model.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReservationRepo) ListByUser(ctx context.Context, userID uuid.UUID, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	out := make([]model.Reservation, 0)
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, len(out), nil
}

func (r *fakeReservationRepo) List(ctx context.Context, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	out := make([]model.Reservation, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, len(out), nil
}

func (r *fakeReservationRepo) Stats(ctx context.Context, userID *uuid.UUID) (*model.ReservationStats, error) {
	stats := &model.ReservationStats{}
	for _, row := range r.rows {
		if userID != nil && row.UserID != *userID {
			continue
		}
		stats.Total++
		switch row.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusConfirmed:
			stats.Confirmed++
			stats.TotalRevenue = stats.TotalRevenue.Add(row.TotalPrice)
		case model.StatusCancelled:
			stats.Cancelled++
		case model.StatusExpired:
			stats.Expired++
		}
	}
	return stats, nil
}

type publishedEvent struct {
	Type string
	Res  *model.Reservation
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishReservationEvent(ctx context.Context, eventType string, res *model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *res
	p.events = append(p.events, publishedEvent{Type: eventType, Res: &copied})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fakeCache is a minimal in-memory KV for sweeper status tests.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return c.err }

func (c *fakeCache) DeletePattern(ctx context.Context, pattern string) error { return nil }

func (c *fakeCache) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	var n int64
	if raw, ok := c.data[key]; ok {
		_ = json.Unmarshal(raw, &n)
	}
	n++
	raw, _ := json.Marshal(n)
	c.data[key] = raw
	return n, nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return c.err }

func (c *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, c.err
}
