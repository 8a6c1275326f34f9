package service

import (
	"context"
	"testing"
	"time"

	itemmodel "flashsale-backend/internal/domains/item/model"
	itemservice "flashsale-backend/internal/domains/item/service"
	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/internal/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleItem(stock, maxPerUser int) *itemmodel.Item {
	return &itemmodel.Item{
		ID:             uuid.New(),
		SKU:            "SKU-1",
		Name:           "Widget",
		Price:          decimal.NewFromInt(100),
		Stock:          stock,
		AvailableStock: stock,
		Status:         itemmodel.StatusActive,
		MaxPerUser:     maxPerUser,
		Version:        1,
	}
}

func newTestEngine(items *fakeItemRepo, res *fakeReservationRepo, pub *fakePublisher, now time.Time) ServiceInterface {
	return NewReservationService(
		fakeTxRunner{},
		items,
		itemservice.NewStockAccountant(items),
		res,
		pub,
		Options{
			Lifetime:        15 * time.Minute,
			DeadlockRetries: 1,
			CodeRetries:     3,
			Now:             func() time.Time { return now },
		},
	)
}

func pendingReservation(userID uuid.UUID, item *itemmodel.Item, qty int, expiresAt time.Time) *model.Reservation {
	return &model.Reservation{
		ID:         uuid.New(),
		Code:       "TESTCODE123",
		UserID:     userID,
		ItemID:     item.ID,
		Quantity:   qty,
		UnitPrice:  item.Price,
		TotalPrice: item.Price.Mul(decimal.NewFromInt(int64(qty))),
		Status:     model.StatusPending,
		ExpiresAt:  expiresAt,
	}
}

func TestCreateReservation(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("creates a pending hold", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		reservations := newFakeReservationRepo()
		pub := &fakePublisher{}
		engine := newTestEngine(items, reservations, pub, now)

		res, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, res.Status)
		assert.NotEmpty(t, res.Code)
		assert.Equal(t, now.Add(15*time.Minute), res.ExpiresAt)
		assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(200)))

		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 2, stored.ReservedStock)
		assert.Equal(t, 8, stored.AvailableStock)

		assert.Equal(t, []string{shared.TypeReservationCreated}, pub.types())
	})

	t.Run("per-user limit outranks insufficient stock", func(t *testing.T) {
		// Both constraints violated; the limit error must win.
		item := saleItem(4, 5)
		items := newFakeItemRepo(item)
		engine := newTestEngine(items, newFakeReservationRepo(), &fakePublisher{}, now)

		_, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 6,
		})
		assert.ErrorIs(t, err, model.ErrMaxPerUserExceeded)
	})

	t.Run("counts pending and confirmed holds against the limit", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		existing := pendingReservation(userID, item, 3, now.Add(10*time.Minute))
		existing.Status = model.StatusConfirmed
		reservations := newFakeReservationRepo(existing)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 3,
		})
		assert.ErrorIs(t, err, model.ErrMaxPerUserExceeded)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		item := saleItem(2, 10)
		items := newFakeItemRepo(item)
		engine := newTestEngine(items, newFakeReservationRepo(), &fakePublisher{}, now)

		_, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 3,
		})
		assert.ErrorIs(t, err, itemmodel.ErrInsufficientStock)
	})

	t.Run("inactive item", func(t *testing.T) {
		item := saleItem(10, 5)
		item.Status = itemmodel.StatusInactive
		items := newFakeItemRepo(item)
		engine := newTestEngine(items, newFakeReservationRepo(), &fakePublisher{}, now)

		_, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 1,
		})
		assert.ErrorIs(t, err, itemmodel.ErrItemInactive)
	})

	t.Run("regenerates code on collision", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		reservations := newFakeReservationRepo()
		reservations.codeCollisions = 2
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		res, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 1,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Code)
		assert.Equal(t, 3, reservations.codeChecks)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		item := saleItem(10, 5)
		engine := newTestEngine(newFakeItemRepo(item), newFakeReservationRepo(), &fakePublisher{}, now)

		_, err := engine.Create(context.Background(), userID, model.CreateReservationRequest{
			ItemID:   item.ID.String(),
			Quantity: 0,
		})
		assert.Error(t, err)
	})
}

func TestConfirmReservation(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("confirms a pending hold", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 2
		item.AvailableStock = 8
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 2, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		pub := &fakePublisher{}
		engine := newTestEngine(items, reservations, pub, now)

		got, err := engine.Confirm(context.Background(), userID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, got.Status)
		require.NotNil(t, got.ConfirmedAt)

		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 8, stored.Stock)
		assert.Equal(t, 0, stored.ReservedStock)
		assert.Equal(t, 8, stored.AvailableStock)

		assert.Equal(t, []string{shared.TypeReservationConfirmed}, pub.types())
	})

	t.Run("succeeds at the exact expiry instant", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 1
		item.AvailableStock = 9
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now)
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		got, err := engine.Confirm(context.Background(), userID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, got.Status)
	})

	t.Run("fails strictly past the deadline", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 1
		item.AvailableStock = 9
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(-time.Second))
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Confirm(context.Background(), userID, res.ID)
		assert.ErrorIs(t, err, model.ErrReservationExpired)

		// The hold stays pending for the sweeper; stock is untouched.
		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 1, stored.ReservedStock)
	})

	t.Run("rejects another user's reservation", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Confirm(context.Background(), uuid.New(), res.ID)
		assert.ErrorIs(t, err, model.ErrNotOwner)
	})

	t.Run("rejects a terminal reservation", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		res.Status = model.StatusCancelled
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Confirm(context.Background(), userID, res.ID)
		assert.ErrorIs(t, err, model.ErrNotPending)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		engine := newTestEngine(newFakeItemRepo(), newFakeReservationRepo(), &fakePublisher{}, now)

		_, err := engine.Confirm(context.Background(), userID, uuid.New())
		assert.ErrorIs(t, err, model.ErrReservationNotFound)
	})
}

func TestCancelReservation(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("owner cancels and stock returns", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 3
		item.AvailableStock = 7
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 3, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		pub := &fakePublisher{}
		engine := newTestEngine(items, reservations, pub, now)

		got, err := engine.Cancel(context.Background(), userID, res.ID, model.CancelReservationRequest{Reason: "changed my mind"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)
		require.NotNil(t, got.CancelledBy)
		assert.Equal(t, userID, *got.CancelledBy)

		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 0, stored.ReservedStock)
		assert.Equal(t, 10, stored.AvailableStock)

		assert.Equal(t, []string{shared.TypeReservationCancelled}, pub.types())
	})

	t.Run("owner check", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Cancel(context.Background(), uuid.New(), res.ID, model.CancelReservationRequest{})
		assert.ErrorIs(t, err, model.ErrNotOwner)
	})

	t.Run("admin cancel requires a reason", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.AdminCancel(context.Background(), uuid.New(), res.ID, model.CancelReservationRequest{})
		assert.Error(t, err)

		got, _ := reservations.GetByID(context.Background(), res.ID)
		assert.Equal(t, model.StatusPending, got.Status)
	})

	t.Run("admin cancels any user's hold", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 1
		item.AvailableStock = 9
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		reservations := newFakeReservationRepo(res)
		adminID := uuid.New()
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		got, err := engine.AdminCancel(context.Background(), adminID, res.ID, model.CancelReservationRequest{Reason: "fraud review"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)
		require.NotNil(t, got.CancelledBy)
		assert.Equal(t, adminID, *got.CancelledBy)
		require.NotNil(t, got.CancelReason)
		assert.Equal(t, "Admin cancelled: fraud review", *got.CancelReason)
	})

	t.Run("cancel is rejected on terminal states", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
		res.Status = model.StatusExpired
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		_, err := engine.Cancel(context.Background(), userID, res.ID, model.CancelReservationRequest{})
		assert.ErrorIs(t, err, model.ErrNotPending)
	})
}

func TestExpireReservation(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("expires an overdue hold and releases stock", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 2
		item.AvailableStock = 8
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 2, now.Add(-time.Minute))
		reservations := newFakeReservationRepo(res)
		pub := &fakePublisher{}
		engine := newTestEngine(items, reservations, pub, now)

		expired, err := engine.Expire(context.Background(), res.ID)
		require.NoError(t, err)
		assert.True(t, expired)

		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 0, stored.ReservedStock)
		assert.Equal(t, 10, stored.AvailableStock)

		got, _ := reservations.GetByID(context.Background(), res.ID)
		assert.Equal(t, model.StatusExpired, got.Status)

		assert.Equal(t, []string{shared.TypeReservationExpired}, pub.types())
	})

	t.Run("does not expire at the exact deadline", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 1
		item.AvailableStock = 9
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now)
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		expired, err := engine.Expire(context.Background(), res.ID)
		require.NoError(t, err)
		assert.False(t, expired)

		got, _ := reservations.GetByID(context.Background(), res.ID)
		assert.Equal(t, model.StatusPending, got.Status)
	})

	t.Run("terminal states are left alone", func(t *testing.T) {
		item := saleItem(10, 5)
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(-time.Minute))
		res.Status = model.StatusConfirmed
		reservations := newFakeReservationRepo(res)
		pub := &fakePublisher{}
		engine := newTestEngine(items, reservations, pub, now)

		expired, err := engine.Expire(context.Background(), res.ID)
		require.NoError(t, err)
		assert.False(t, expired)
		assert.Empty(t, pub.types())

		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 0, stored.ReservedStock)
	})

	t.Run("expire twice is idempotent", func(t *testing.T) {
		item := saleItem(10, 5)
		item.ReservedStock = 1
		item.AvailableStock = 9
		items := newFakeItemRepo(item)
		res := pendingReservation(userID, item, 1, now.Add(-time.Minute))
		reservations := newFakeReservationRepo(res)
		engine := newTestEngine(items, reservations, &fakePublisher{}, now)

		expired, err := engine.Expire(context.Background(), res.ID)
		require.NoError(t, err)
		assert.True(t, expired)

		expired, err = engine.Expire(context.Background(), res.ID)
		require.NoError(t, err)
		assert.False(t, expired)

		// Stock released exactly once.
		stored, _ := items.GetByID(context.Background(), item.ID)
		assert.Equal(t, 0, stored.ReservedStock)
		assert.Equal(t, 10, stored.AvailableStock)
	})
}

func TestGetReservationAccess(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	item := saleItem(10, 5)
	res := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
	reservations := newFakeReservationRepo(res)
	engine := newTestEngine(newFakeItemRepo(item), reservations, &fakePublisher{}, now)

	got, err := engine.Get(context.Background(), userID, false, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = engine.Get(context.Background(), uuid.New(), false, res.ID)
	assert.ErrorIs(t, err, model.ErrNotOwner)

	got, err = engine.Get(context.Background(), uuid.New(), true, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestReservationStats(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	item := saleItem(100, 50)

	confirmed := pendingReservation(userID, item, 2, now.Add(5*time.Minute))
	confirmed.Status = model.StatusConfirmed
	confirmedOther := pendingReservation(uuid.New(), item, 3, now.Add(5*time.Minute))
	confirmedOther.Status = model.StatusConfirmed
	pending := pendingReservation(userID, item, 1, now.Add(5*time.Minute))
	expired := pendingReservation(userID, item, 4, now.Add(-time.Minute))
	expired.Status = model.StatusExpired

	reservations := newFakeReservationRepo(confirmed, confirmedOther, pending, expired)
	engine := newTestEngine(newFakeItemRepo(item), reservations, &fakePublisher{}, now)

	t.Run("global stats count revenue from confirmed holds only", func(t *testing.T) {
		stats, err := engine.Stats(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 1, stats.Pending)
		assert.Equal(t, 2, stats.Confirmed)
		assert.Equal(t, 1, stats.Expired)
		// 2 + 3 units at price 100; pending and expired contribute nothing.
		assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(500)))
	})

	t.Run("user scope narrows the aggregate", func(t *testing.T) {
		stats, err := engine.Stats(context.Background(), &userID)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Confirmed)
		assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(200)))
	})
}
