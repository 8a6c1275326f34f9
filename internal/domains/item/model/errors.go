package model

import "errors"

const (
	ErrCodeItemNotFound      = "ITM001"
	ErrCodeItemInactive      = "ITM002"
	ErrCodeInsufficientStock = "ITM003"
	ErrCodeReservedShortfall = "ITM004"
	ErrCodeStockShortfall    = "ITM005"
	ErrCodeSKUExists         = "ITM006"
	ErrCodeVersionMismatch   = "ITM007"
	ErrCodeItemHasHolds      = "ITM008"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemInactive      = errors.New("item is not active or outside its sale window")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrReservedShortfall = errors.New("reserved stock is less than requested quantity")
	ErrStockShortfall    = errors.New("stock is less than requested quantity")
	ErrSKUExists         = errors.New("sku already exists")
	ErrVersionMismatch   = errors.New("version mismatch - concurrent modification detected")
	ErrItemHasHolds      = errors.New("item has pending reservations")
)

// ItemError carries a stable code alongside the underlying cause.
type ItemError struct {
	Code    string
	Message string
	Err     error
}

func (e *ItemError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func NewItemError(code, message string, err error) *ItemError {
	return &ItemError{Code: code, Message: message, Err: err}
}
