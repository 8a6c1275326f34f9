package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the lifecycle status of a sale item.
type ItemStatus string

const (
	StatusActive     ItemStatus = "active"
	StatusInactive   ItemStatus = "inactive"
	StatusOutOfStock ItemStatus = "out_of_stock"
)

// Item is a flash-sale item. The three stock columns satisfy
// available_stock = stock - reserved_stock at every committed state; they are
// mutated exclusively through column-relative deltas issued by the repository.
type Item struct {
	ID             uuid.UUID        `json:"id"`
	SKU            string           `json:"sku"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	Stock          int              `json:"stock"`
	ReservedStock  int              `json:"reserved_stock"`
	AvailableStock int              `json:"available_stock"`
	Status         ItemStatus       `json:"status"`
	ImageURL       *string          `json:"image_url,omitempty"`
	SaleStart      *time.Time       `json:"sale_start,omitempty"`
	SaleEnd        *time.Time       `json:"sale_end,omitempty"`
	MaxPerUser     int              `json:"max_per_user"`
	Version        int              `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"-"`
}

// InSaleWindow reports whether now falls inside the optional sale window.
// Open ends are unbounded.
func (i *Item) InSaleWindow(now time.Time) bool {
	if i.SaleStart != nil && now.Before(*i.SaleStart) {
		return false
	}
	if i.SaleEnd != nil && now.After(*i.SaleEnd) {
		return false
	}
	return true
}

// Purchasable reports whether new reservations may be created for the item.
func (i *Item) Purchasable(now time.Time) bool {
	return i.Status == StatusActive && i.DeletedAt == nil && i.InSaleWindow(now)
}

// ItemStats aggregates counts per status.
type ItemStats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Inactive   int `json:"inactive"`
	OutOfStock int `json:"out_of_stock"`
}

// AuditRow describes an item whose stored available_stock drifted from the
// derived value. Produced by the consistency audit, fixed by repair.
type AuditRow struct {
	ItemID         uuid.UUID `json:"item_id"`
	SKU            string    `json:"sku"`
	Stock          int       `json:"stock"`
	ReservedStock  int       `json:"reserved_stock"`
	AvailableStock int       `json:"available_stock"`
	Expected       int       `json:"expected"`
}
