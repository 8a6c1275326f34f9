package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// GetByID, GetByCode and GetForUpdate splice reservationColumns between
// SELECT and FROM, so the constant must carry its own surrounding
// whitespace or the generated SQL fuses keywords into the column list.
func TestReservationColumnsSpliceSafely(t *testing.T) {
	for _, tail := range []string{
		`FROM reservations WHERE id = $1`,
		`FROM reservations WHERE code = $1`,
		`FROM reservations WHERE id = $1 FOR UPDATE`,
	} {
		query := `SELECT` + reservationColumns + tail

		assert.Regexp(t, `SELECT\s`, query)
		assert.Regexp(t, `\sFROM reservations`, query)
		assert.NotContains(t, query, "updated_atFROM")
	}
}

// Column count must match the scan arity in scanReservation.
func TestReservationColumnsArity(t *testing.T) {
	cols := strings.Split(reservationColumns, ",")
	assert.Len(t, cols, 15)
	for _, col := range cols {
		assert.NotEmpty(t, strings.TrimSpace(col))
	}
}
