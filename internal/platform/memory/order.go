package memory

import (
	"context"
	"fmt"
	"slices"

	order "github.com/dmehra2102/storefront/internal/order/domain"
)

type OrderRepository struct {
	s *Store
}

// DecrementStock applies every adjustment or none of them.
func (r *OrderRepository) DecrementStock(ctx context.Context, adjustments []order.StockAdjustment) error {
	return r.s.do(ctx, func(st *state) error {
		index := make(map[int64]int, len(st.products))
		for i, p := range st.products {
			index[p.ID] = i
		}

		var short []int64
		for _, a := range adjustments {
			i, ok := index[a.ProductID]
			if !ok {
				return &order.ProductNotFoundError{ProductID: a.ProductID}
			}
			if st.products[i].Stock < a.Quantity && !slices.Contains(short, a.ProductID) {
				short = append(short, a.ProductID)
			}
		}
		if len(short) > 0 {
			return &order.OutOfStockError{ProductIDs: short}
		}
		for _, a := range adjustments {
			st.products[index[a.ProductID]].Stock -= a.Quantity
		}
		return nil
	})
}

func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	err := r.s.do(ctx, func(st *state) error {
		st.nextOrderID++
		o.ID = st.nextOrderID
		o.LineItems = slices.Clone(o.LineItems)
		if o.CreatedAt.IsZero() {
			o.CreatedAt = r.s.now()
		}
		st.orders[o.ID] = o
		return nil
	})
	return o, err
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (order.Order, error) {
	var o order.Order
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.orders[id]
		if !ok {
			return fmt.Errorf("order %d: %w", id, order.ErrOrderNotFound)
		}
		o = found
		o.LineItems = slices.Clone(found.LineItems)
		return nil
	})
	return o, err
}
