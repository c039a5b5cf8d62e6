package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

func catalogOf(products ...catalog.Product) map[int64]catalog.Product {
	m := make(map[int64]catalog.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

func product(id int64, price int64, stock int) catalog.Product {
	return catalog.Product{ID: id, Name: "p", Price: decimal.NewFromInt(price), Stock: stock}
}

func TestPlan(t *testing.T) {
	store := catalogOf(product(1, 50, 5), product(2, 30, 2))

	tests := []struct {
		name      string
		lines     []LineItem
		wantTotal string
		wantAdj   []StockAdjustment
		wantErr   error
	}{
		{
			name:      "two lines within stock",
			lines:     []LineItem{{1, 2}, {2, 1}},
			wantTotal: "130",
			wantAdj:   []StockAdjustment{{1, 2}, {2, 1}},
		},
		{
			name:      "exact stock",
			lines:     []LineItem{{1, 5}, {2, 2}},
			wantTotal: "310",
			wantAdj:   []StockAdjustment{{1, 5}, {2, 2}},
		},
		{
			name:      "zero quantity is priced at nothing and moves no stock",
			lines:     []LineItem{{1, 0}},
			wantTotal: "0",
			wantAdj:   []StockAdjustment{},
		},
		{
			name:      "repeated product draws on the same stock",
			lines:     []LineItem{{1, 3}, {1, 2}},
			wantTotal: "250",
			wantAdj:   []StockAdjustment{{1, 5}},
		},
		{
			name:    "repeated product exceeding stock on the second line",
			lines:   []LineItem{{1, 3}, {1, 3}},
			wantErr: &OutOfStockError{ProductIDs: []int64{1}},
		},
		{
			name:    "single out of stock line",
			lines:   []LineItem{{1, 2}, {2, 5}},
			wantErr: &OutOfStockError{ProductIDs: []int64{2}},
		},
		{
			name:    "every out of stock product is reported",
			lines:   []LineItem{{1, 6}, {2, 3}},
			wantErr: &OutOfStockError{ProductIDs: []int64{1, 2}},
		},
		{
			name:    "missing product",
			lines:   []LineItem{{99, 1}},
			wantErr: &ProductNotFoundError{ProductID: 99},
		},
		{
			name:    "missing product wins over earlier out of stock",
			lines:   []LineItem{{2, 5}, {99, 1}},
			wantErr: &ProductNotFoundError{ProductID: 99},
		},
		{
			name:    "negative quantity",
			lines:   []LineItem{{1, -1}},
			wantErr: ErrNegativeQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.lines, store)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, got.Total.String())
			assert.Equal(t, tt.wantAdj, got.Adjustments)
		})
	}

	// the catalog passed in is never mutated
	assert.Equal(t, 5, store[1].Stock)
	assert.Equal(t, 2, store[2].Stock)
}

func TestPlanDecimalPrices(t *testing.T) {
	p := catalog.Product{ID: 1, Price: decimal.RequireFromString("19.99"), Stock: 10}
	got, err := Plan([]LineItem{{1, 3}}, catalogOf(p))
	require.NoError(t, err)
	assert.Equal(t, "59.97", got.Total.String())
}
