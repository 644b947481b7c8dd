package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"75.00", 7500},
		{"75", 7500},
		{"19.99", 1999},
		{"19.999", 2000},
		{"0.005", 1},
		{"120.5", 12050},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestExceedsProcessorLimit(t *testing.T) {
	assert.False(t, ExceedsProcessorLimit(decimal.RequireFromString("999999.99")))
	assert.False(t, ExceedsProcessorLimit(decimal.RequireFromString("999999.994")))
	assert.True(t, ExceedsProcessorLimit(decimal.RequireFromString("999999.995")))
	assert.True(t, ExceedsProcessorLimit(decimal.RequireFromString("92233720368547758.08")))
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, FromMinorUnits(7500).Equal(decimal.RequireFromString("75.00")))
	assert.Equal(t, 75.0, FromMinorUnits(7500).InexactFloat64())
	assert.Equal(t, 19.99, FromMinorUnits(1999).InexactFloat64())
}

func TestClassSessionCapacity(t *testing.T) {
	class := ClassSession{MaxCapacity: 8, Enrolled: 7, MinEnrollment: 4}
	assert.True(t, class.HasSpace())
	assert.Equal(t, 1, class.SpotsLeft())
	assert.True(t, class.MeetsMinimum())

	class.Enrolled = 8
	assert.False(t, class.HasSpace())
	assert.Equal(t, 0, class.SpotsLeft())
}
