package service

import (
	"context"
	"fmt"

	"flashsale-backend/internal/domains/item/model"
	"flashsale-backend/internal/domains/item/repository"
	"flashsale-backend/pkg/database"

	"github.com/google/uuid"
)

// PendingHoldChecker reports whether an item still backs pending
// reservations. Satisfied by the reservation repository.
type PendingHoldChecker interface {
	HasPendingByItem(ctx context.Context, q database.DBTX, itemID uuid.UUID) (bool, error)
}

// ObjectStorage uploads item images. Satisfied by the MinIO adapter.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ServiceInterface is the admin-facing item management API.
type ServiceInterface interface {
	CreateItem(ctx context.Context, req model.CreateItemRequest) (*model.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
	ListItems(ctx context.Context, req model.ListItemsRequest) ([]model.Item, int, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req model.UpdateItemRequest) (*model.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, req model.AdjustStockRequest) (*model.Item, error)
	UploadImage(ctx context.Context, id uuid.UUID, data []byte, contentType string) (string, error)
	Stats(ctx context.Context) (*model.ItemStats, error)
}

type itemService struct {
	items   repository.RepositoryInterface
	holds   PendingHoldChecker
	storage ObjectStorage
	tx      database.TxRunner
}

func NewItemService(
	items repository.RepositoryInterface,
	holds PendingHoldChecker,
	storage ObjectStorage,
	tx database.TxRunner,
) ServiceInterface {
	return &itemService{items: items, holds: holds, storage: storage, tx: tx}
}

func (s *itemService) CreateItem(ctx context.Context, req model.CreateItemRequest) (*model.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item := &model.Item{
		ID:            uuid.New(),
		SKU:           req.SKU,
		Name:          req.Name,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		Status:        model.StatusActive,
		SaleStart:     req.SaleStart,
		SaleEnd:       req.SaleEnd,
		MaxPerUser:    req.MaxPerUser,
	}
	if req.Stock == 0 {
		item.Status = model.StatusOutOfStock
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *itemService) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *itemService) ListItems(ctx context.Context, req model.ListItemsRequest) ([]model.Item, int, error) {
	req.Normalize()
	return s.items.List(ctx, req)
}

func (s *itemService) UpdateItem(ctx context.Context, id uuid.UUID, req model.UpdateItemRequest) (*model.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.items.Update(ctx, id, req)
}

// DeleteItem soft-deletes the item. The pending-hold check and the tombstone
// write share a transaction with the row locked so a concurrent reservation
// cannot slip in between them.
func (s *itemService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(q database.DBTX) error {
		if _, err := s.items.GetForUpdate(ctx, q, id); err != nil {
			return err
		}

		hasHolds, err := s.holds.HasPendingByItem(ctx, q, id)
		if err != nil {
			return err
		}
		if hasHolds {
			return model.ErrItemHasHolds
		}

		return s.items.SoftDelete(ctx, q, id)
	})
}

// AdjustStock restocks or writes off physical units. Reserved stock is
// untouched; the delta flows through the same single-statement update as
// every other stock mutation.
func (s *itemService) AdjustStock(ctx context.Context, id uuid.UUID, req model.AdjustStockRequest) (*model.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(q database.DBTX) error {
		item, err := s.items.GetForUpdate(ctx, q, id)
		if err != nil {
			return err
		}

		if req.Delta < 0 && item.Stock+req.Delta < item.ReservedStock {
			return model.ErrStockShortfall
		}

		return s.items.ApplyStockDelta(ctx, q, id, req.Delta, 0)
	})
	if err != nil {
		return nil, err
	}

	return s.items.GetByID(ctx, id)
}

func (s *itemService) UploadImage(ctx context.Context, id uuid.UUID, data []byte, contentType string) (string, error) {
	if _, err := s.items.GetByID(ctx, id); err != nil {
		return "", err
	}

	key := fmt.Sprintf("items/%s/%s", id, uuid.NewString())
	url, err := s.storage.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload item image: %w", err)
	}

	if err := s.items.UpdateImageURL(ctx, id, url); err != nil {
		return "", err
	}

	return url, nil
}

func (s *itemService) Stats(ctx context.Context) (*model.ItemStats, error) {
	return s.items.Stats(ctx)
}
