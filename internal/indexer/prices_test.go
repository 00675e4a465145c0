package indexer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestExtendRange(t *testing.T) {
	tests := []struct {
		name           string
		floor, ceiling int64
		price          int64
		wantFloor      int64
		wantCeiling    int64
		wantChanged    bool
	}{
		{"first price sets both", 0, 0, 100, 100, 100, true},
		{"lower price moves floor", 100, 100, 60, 60, 100, true},
		{"higher price moves ceiling", 60, 100, 150, 60, 150, true},
		{"inside range is a noop", 60, 150, 100, 60, 150, false},
		{"equal to floor is a noop", 60, 150, 60, 60, 150, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floor, ceiling, changed := extendRange(d(tt.floor), d(tt.ceiling), d(tt.price))
			assert.Equal(t, d(tt.wantFloor).String(), floor.String())
			assert.Equal(t, d(tt.wantCeiling).String(), ceiling.String())
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

func TestPriceRangeObserve(t *testing.T) {
	r := newPriceRange()
	assert.True(t, r.floor.IsZero())
	assert.True(t, r.ceiling.IsZero())

	r.observe(d(50))
	r.observe(d(20))
	r.observe(d(80))

	assert.Equal(t, "20", r.floor.String())
	assert.Equal(t, "80", r.ceiling.String())
}
