package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
)

// CreateReservationRequest places a hold on an item.
type CreateReservationRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

func (r CreateReservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemID,
			validation.Required.Error("item_id is required"),
			is.UUIDv4.Error("item_id must be a valid uuid"),
		),
		validation.Field(&r.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be positive"),
			validation.Max(100).Error("quantity must be at most 100"),
		),
	)
}

// CancelReservationRequest cancels a pending hold. The reason is optional
// for owners; admin cancellations must carry one.
type CancelReservationRequest struct {
	Reason string `json:"reason"`
}

func (r CancelReservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason,
			validation.Length(0, 500).Error("reason must be at most 500 characters"),
		),
	)
}

// ValidateAdmin additionally requires the reason.
func (r CancelReservationRequest) ValidateAdmin() error {
	if err := r.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason,
			validation.Required.Error("reason is required for admin cancellation"),
		),
	)
}

// ListReservationsRequest filters and paginates reservation listings.
// UserID is only honored on the admin listing.
type ListReservationsRequest struct {
	Status *ReservationStatus `form:"status"`
	UserID *uuid.UUID         `form:"user_id"`
	ItemID *uuid.UUID         `form:"item_id"`
	Page   int                `form:"page"`
	Limit  int                `form:"limit"`
}

func (r *ListReservationsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 || r.Limit > 100 {
		r.Limit = 20
	}
}
