package domain

import (
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
)

// StockAdjustment is the total quantity to take from one product.
type StockAdjustment struct {
	ProductID int64
	Quantity  int
}

type Placement struct {
	Total decimal.Decimal
	// Adjustments holds one entry per product with a non-zero decrement, in
	// the order products were first touched.
	Adjustments []StockAdjustment
}

// Plan validates lines against the given products and prices them without
// touching the products themselves. Lines are evaluated in order: a missing
// product aborts at once, while out-of-stock lines are collected so the
// caller sees every offender. Quantities of repeated products draw on the
// same remaining stock.
func Plan(lines []LineItem, products map[int64]catalog.Product) (Placement, error) {
	remaining := make(map[int64]int, len(products))
	taken := make(map[int64]int, len(products))
	var touched []int64
	var outOfStock []int64
	flagged := map[int64]bool{}
	total := decimal.Zero

	for _, line := range lines {
		if line.Quantity < 0 {
			return Placement{}, ErrNegativeQuantity
		}
		p, ok := products[line.ProductID]
		if !ok {
			return Placement{}, &ProductNotFoundError{ProductID: line.ProductID}
		}
		left, seen := remaining[p.ID]
		if !seen {
			left = p.Stock
		}
		if line.Quantity > left {
			if !flagged[p.ID] {
				flagged[p.ID] = true
				outOfStock = append(outOfStock, p.ID)
			}
			remaining[p.ID] = left
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		remaining[p.ID] = left - line.Quantity
		if line.Quantity > 0 {
			if _, ok := taken[p.ID]; !ok {
				touched = append(touched, p.ID)
			}
			taken[p.ID] += line.Quantity
		}
	}

	if len(outOfStock) > 0 {
		return Placement{}, &OutOfStockError{ProductIDs: outOfStock}
	}

	adj := make([]StockAdjustment, 0, len(touched))
	for _, id := range touched {
		adj = append(adj, StockAdjustment{ProductID: id, Quantity: taken[id]})
	}
	return Placement{Total: total, Adjustments: adj}, nil
}
