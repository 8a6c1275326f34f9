package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInSaleWindow(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  bool
	}{
		{"no window", nil, nil, true},
		{"inside window", &before, &after, true},
		{"before start", &after, nil, false},
		{"after end", nil, &before, false},
		{"open start, future end", nil, &after, true},
		{"past start, open end", &before, nil, true},
		{"at exact start", &now, nil, true},
		{"at exact end", nil, &now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &Item{SaleStart: tt.start, SaleEnd: tt.end}
			assert.Equal(t, tt.want, item.InSaleWindow(now))
		})
	}
}

func TestPurchasable(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	t.Run("active item with no window", func(t *testing.T) {
		item := &Item{Status: StatusActive}
		assert.True(t, item.Purchasable(now))
	})

	t.Run("inactive item", func(t *testing.T) {
		item := &Item{Status: StatusInactive}
		assert.False(t, item.Purchasable(now))
	})

	t.Run("out of stock item", func(t *testing.T) {
		item := &Item{Status: StatusOutOfStock}
		assert.False(t, item.Purchasable(now))
	})

	t.Run("soft deleted item", func(t *testing.T) {
		deleted := now.Add(-time.Minute)
		item := &Item{Status: StatusActive, DeletedAt: &deleted}
		assert.False(t, item.Purchasable(now))
	})

	t.Run("active item outside the window", func(t *testing.T) {
		start := now.Add(time.Hour)
		item := &Item{Status: StatusActive, SaleStart: &start}
		assert.False(t, item.Purchasable(now))
	})
}
