package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// CreateItemRequest creates a new item. Stock counters start with
// reserved_stock = 0 and available_stock = stock.
type CreateItemRequest struct {
	SKU           string           `json:"sku"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Stock         int              `json:"stock"`
	SaleStart     *time.Time       `json:"sale_start"`
	SaleEnd       *time.Time       `json:"sale_end"`
	MaxPerUser    int              `json:"max_per_user"`
}

func (r CreateItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SKU,
			validation.Required.Error("sku is required"),
			validation.Length(1, 100).Error("sku must be 1-100 characters"),
		),
		validation.Field(&r.Name,
			validation.Required.Error("name is required"),
			validation.Length(1, 255).Error("name must be 1-255 characters"),
		),
		validation.Field(&r.Price,
			validation.By(nonNegativeDecimal("price")),
		),
		validation.Field(&r.Stock,
			validation.Min(0).Error("stock must be non-negative"),
		),
		validation.Field(&r.MaxPerUser,
			validation.Required.Error("max_per_user is required"),
			validation.Min(1).Error("max_per_user must be positive"),
		),
	)
}

// UpdateItemRequest updates non-stock fields; stock counters change only
// through stock operations. Version enables the optimistic check.
type UpdateItemRequest struct {
	Name          *string          `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Status        *ItemStatus      `json:"status"`
	SaleStart     *time.Time       `json:"sale_start"`
	SaleEnd       *time.Time       `json:"sale_end"`
	MaxPerUser    *int             `json:"max_per_user"`
	Version       int              `json:"version"`
}

func (r UpdateItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Version,
			validation.Min(1).Error("version is required"),
		),
		validation.Field(&r.MaxPerUser,
			validation.Min(1).Error("max_per_user must be positive"),
		),
		validation.Field(&r.Status,
			validation.In(StatusActive, StatusInactive, StatusOutOfStock).Error("invalid status"),
		),
	)
}

// AdjustStockRequest restocks (positive) or writes off (negative) physical
// stock. Routed through the same column-relative delta as every other
// stock mutation.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

func (r AdjustStockRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Delta,
			validation.Required.Error("delta is required"),
		),
		validation.Field(&r.Reason,
			validation.Length(0, 500).Error("reason must be at most 500 characters"),
		),
	)
}

// ListItemsRequest filters and paginates the item listing.
type ListItemsRequest struct {
	Status *ItemStatus `form:"status"`
	Search string      `form:"search"`
	Page   int         `form:"page"`
	Limit  int         `form:"limit"`
}

func (r *ListItemsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}

func nonNegativeDecimal(field string) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(decimal.Decimal)
		if !ok {
			return validation.NewError("validation_decimal", field+" must be a decimal")
		}
		if d.IsNegative() {
			return validation.NewError("validation_negative", field+" must be non-negative")
		}
		return nil
	}
}
