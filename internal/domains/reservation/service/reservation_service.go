package service

import (
	"context"
	"errors"
	"time"

	itemmodel "flashsale-backend/internal/domains/item/model"
	itemrepo "flashsale-backend/internal/domains/item/repository"
	itemservice "flashsale-backend/internal/domains/item/service"
	"flashsale-backend/internal/domains/reservation/model"
	"flashsale-backend/internal/domains/reservation/repository"
	"flashsale-backend/internal/shared"
	"flashsale-backend/internal/shared/utils"
	"flashsale-backend/pkg/database"
	"flashsale-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher fans reservation lifecycle transitions out to the bus.
// Publishing happens after commit; a publish failure never rolls back the
// state change.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, eventType string, res *model.Reservation) error
}

// ServiceInterface is the reservation lifecycle API.
type ServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, req model.CreateReservationRequest) (*model.Reservation, error)
	Confirm(ctx context.Context, userID, id uuid.UUID) (*model.Reservation, error)
	Cancel(ctx context.Context, userID, id uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error)
	AdminCancel(ctx context.Context, adminID, id uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error)
	Expire(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*model.Reservation, error)
	ListMine(ctx context.Context, userID uuid.UUID, req model.ListReservationsRequest) ([]model.Reservation, int, error)
	AdminList(ctx context.Context, req model.ListReservationsRequest) ([]model.Reservation, int, error)
	Stats(ctx context.Context, userID *uuid.UUID) (*model.ReservationStats, error)
}

// Options tunes the engine's retry and lifetime knobs.
type Options struct {
	Lifetime        time.Duration
	DeadlockRetries int
	CodeRetries     int
	Now             func() time.Time
}

type reservationService struct {
	tx           database.TxRunner
	items        itemrepo.RepositoryInterface
	stock        *itemservice.StockAccountant
	reservations repository.RepositoryInterface
	publisher    EventPublisher

	lifetime        time.Duration
	deadlockRetries int
	codeRetries     int
	now             func() time.Time
}

func NewReservationService(
	tx database.TxRunner,
	items itemrepo.RepositoryInterface,
	stock *itemservice.StockAccountant,
	reservations repository.RepositoryInterface,
	publisher EventPublisher,
	opts Options,
) ServiceInterface {
	if opts.Lifetime <= 0 {
		opts.Lifetime = 15 * time.Minute
	}
	if opts.DeadlockRetries <= 0 {
		opts.DeadlockRetries = 3
	}
	if opts.CodeRetries <= 0 {
		opts.CodeRetries = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &reservationService{
		tx:              tx,
		items:           items,
		stock:           stock,
		reservations:    reservations,
		publisher:       publisher,
		lifetime:        opts.Lifetime,
		deadlockRetries: opts.DeadlockRetries,
		codeRetries:     opts.CodeRetries,
		now:             opts.Now,
	}
}

// Create places a hold. Inside one transaction the item row is locked, the
// per-user limit is checked against pending plus confirmed quantity, stock
// is reserved and the pending row inserted. The per-user check runs before
// the availability check so a limit breach reports as such even when stock
// would also have been short.
func (s *reservationService) Create(ctx context.Context, userID uuid.UUID, req model.CreateReservationRequest) (*model.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	itemID := utils.ParseStringToUUID(req.ItemID)
	if itemID == uuid.Nil {
		return nil, itemmodel.ErrItemNotFound
	}

	var created *model.Reservation
	err := s.withRetry(ctx, func() error {
		return s.tx.WithinTx(ctx, func(q database.DBTX) error {
			now := s.now()

			item, err := s.items.GetForUpdate(ctx, q, itemID)
			if err != nil {
				return err
			}
			if !item.Purchasable(now) {
				return itemmodel.ErrItemInactive
			}

			active, err := s.reservations.SumUserActive(ctx, q, userID, itemID)
			if err != nil {
				return err
			}
			if active+req.Quantity > item.MaxPerUser {
				return model.ErrMaxPerUserExceeded
			}

			if _, err := s.stock.Reserve(ctx, q, itemID, req.Quantity, now); err != nil {
				return err
			}

			code, err := s.generateCode(ctx, q)
			if err != nil {
				return err
			}

			res := &model.Reservation{
				ID:         uuid.New(),
				Code:       code,
				UserID:     userID,
				ItemID:     itemID,
				Quantity:   req.Quantity,
				UnitPrice:  item.Price,
				TotalPrice: item.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
				Status:     model.StatusPending,
				ExpiresAt:  now.Add(s.lifetime),
			}
			if err := s.reservations.Insert(ctx, q, res); err != nil {
				return err
			}

			created = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, shared.TypeReservationCreated, created)
	return created, nil
}

// Confirm converts a pending hold into a sale. A hold expiring exactly at
// the confirmation instant still succeeds; only strictly past the deadline
// is it rejected, leaving the release to the sweeper.
func (s *reservationService) Confirm(ctx context.Context, userID, id uuid.UUID) (*model.Reservation, error) {
	var confirmed *model.Reservation
	err := s.withRetry(ctx, func() error {
		return s.tx.WithinTx(ctx, func(q database.DBTX) error {
			probe, err := s.reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if probe.UserID != userID {
				return model.ErrNotOwner
			}

			// Item row first, reservation row second. Every stock-touching
			// transaction locks in this order.
			if _, err := s.items.GetForUpdate(ctx, q, probe.ItemID); err != nil {
				return err
			}
			res, err := s.reservations.GetForUpdate(ctx, q, id)
			if err != nil {
				return err
			}

			now := s.now()
			if res.Terminal() {
				if res.Status == model.StatusExpired {
					return model.ErrReservationExpired
				}
				return model.ErrNotPending
			}
			if now.After(res.ExpiresAt) {
				return model.ErrReservationExpired
			}

			if _, err := s.stock.Confirm(ctx, q, res.ItemID, res.Quantity); err != nil {
				return err
			}
			if err := s.reservations.MarkConfirmed(ctx, q, id, now); err != nil {
				return err
			}

			res.Status = model.StatusConfirmed
			res.ConfirmedAt = &now
			confirmed = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, shared.TypeReservationConfirmed, confirmed)
	return confirmed, nil
}

// Cancel releases a pending hold on behalf of its owner.
func (s *reservationService) Cancel(ctx context.Context, userID, id uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.cancel(ctx, id, userID, req.Reason, &userID)
}

// AdminCancel releases any pending hold. The reason is mandatory and lands
// in the audit trail alongside the admin's id.
func (s *reservationService) AdminCancel(ctx context.Context, adminID, id uuid.UUID, req model.CancelReservationRequest) (*model.Reservation, error) {
	if err := req.ValidateAdmin(); err != nil {
		return nil, err
	}
	return s.cancel(ctx, id, adminID, "Admin cancelled: "+req.Reason, nil)
}

func (s *reservationService) cancel(ctx context.Context, id, by uuid.UUID, reason string, mustOwn *uuid.UUID) (*model.Reservation, error) {
	var cancelled *model.Reservation
	err := s.withRetry(ctx, func() error {
		return s.tx.WithinTx(ctx, func(q database.DBTX) error {
			probe, err := s.reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if mustOwn != nil && probe.UserID != *mustOwn {
				return model.ErrNotOwner
			}

			if _, err := s.items.GetForUpdate(ctx, q, probe.ItemID); err != nil {
				return err
			}
			res, err := s.reservations.GetForUpdate(ctx, q, id)
			if err != nil {
				return err
			}
			if res.Terminal() {
				return model.ErrNotPending
			}

			if _, err := s.stock.Release(ctx, q, res.ItemID, res.Quantity); err != nil {
				return err
			}

			now := s.now()
			if err := s.reservations.MarkCancelled(ctx, q, id, by, reason, now); err != nil {
				return err
			}

			res.Status = model.StatusCancelled
			res.CancelledAt = &now
			res.CancelledBy = &by
			if reason != "" {
				res.CancelReason = &reason
			}
			cancelled = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, shared.TypeReservationCancelled, cancelled)
	return cancelled, nil
}

// Expire moves one overdue pending hold to expired and releases its stock.
// Terminal rows and holds not yet strictly past their deadline are left
// untouched; the boolean reports whether a transition happened. Safe to
// call concurrently with Confirm: the status re-check in the expire update
// lets a racing confirm win.
func (s *reservationService) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	var (
		expired bool
		subject *model.Reservation
	)
	err := s.withRetry(ctx, func() error {
		expired = false
		return s.tx.WithinTx(ctx, func(q database.DBTX) error {
			probe, err := s.reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if !probe.SweepableAt(s.now()) {
				return nil
			}

			if _, err := s.items.GetForUpdate(ctx, q, probe.ItemID); err != nil {
				return err
			}
			res, err := s.reservations.GetForUpdate(ctx, q, id)
			if err != nil {
				return err
			}

			now := s.now()
			if !res.SweepableAt(now) {
				return nil
			}

			if _, err := s.stock.Release(ctx, q, res.ItemID, res.Quantity); err != nil {
				return err
			}

			moved, err := s.reservations.MarkExpired(ctx, q, id, now)
			if err != nil {
				return err
			}
			if !moved {
				return errors.New("reservation changed state during expiry")
			}

			res.Status = model.StatusExpired
			subject = res
			expired = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}

	if expired {
		s.publish(ctx, shared.TypeReservationExpired, subject)
	}
	return expired, nil
}

func (s *reservationService) Get(ctx context.Context, userID uuid.UUID, isAdmin bool, id uuid.UUID) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && res.UserID != userID {
		return nil, model.ErrNotOwner
	}
	return res, nil
}

func (s *reservationService) ListMine(ctx context.Context, userID uuid.UUID, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	req.Normalize()
	return s.reservations.ListByUser(ctx, userID, req)
}

func (s *reservationService) AdminList(ctx context.Context, req model.ListReservationsRequest) ([]model.Reservation, int, error) {
	req.Normalize()
	return s.reservations.List(ctx, req)
}

func (s *reservationService) Stats(ctx context.Context, userID *uuid.UUID) (*model.ReservationStats, error) {
	return s.reservations.Stats(ctx, userID)
}

// generateCode draws reservation codes until one is free. The existence
// check and the insert share a transaction, so a lost race still surfaces
// as a unique violation and retries at the transaction level.
func (s *reservationService) generateCode(ctx context.Context, q database.DBTX) (string, error) {
	for i := 0; i < s.codeRetries; i++ {
		code, err := utils.GenerateReservationCode()
		if err != nil {
			return "", err
		}
		exists, err := s.reservations.CodeExists(ctx, q, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", model.ErrCodeExhausted
}

// withRetry re-runs fn on serialization failures, deadlocks and reservation
// code collisions, backing off briefly between attempts.
func (s *reservationService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.deadlockRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !database.IsTransient(err) && !errors.Is(err, model.ErrCodeExhausted) {
			return err
		}

		logger.Warn("retrying reservation transaction", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return err
}

func (s *reservationService) publish(ctx context.Context, eventType string, res *model.Reservation) {
	if s.publisher == nil || res == nil {
		return
	}
	if err := s.publisher.PublishReservationEvent(ctx, eventType, res); err != nil {
		logger.ErrorFields("failed to publish reservation event", err, map[string]interface{}{
			"event_type":     eventType,
			"reservation_id": res.ID.String(),
		})
	}
}
