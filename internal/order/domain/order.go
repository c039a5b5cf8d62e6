package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// LineItem is one (product, quantity) pairing, both as request and as the
// snapshot persisted with an order.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	ID         int64
	LineItems  []LineItem
	TotalPrice decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
}

func NewOrder(status OrderStatus, lines []LineItem, total decimal.Decimal) Order {
	snapshot := make([]LineItem, len(lines))
	copy(snapshot, lines)
	return Order{
		LineItems:  snapshot,
		TotalPrice: total,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
}

// ProductIDs returns the distinct product ids of lines in first-seen order.
func ProductIDs(lines []LineItem) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
