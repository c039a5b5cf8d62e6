package domain

import "github.com/shopspring/decimal"

const EventOrderCreated = "OrderCreated"

type OrderCreated struct {
	OrderID    int64           `json:"order_id"`
	Status     OrderStatus     `json:"status"`
	TotalPrice decimal.Decimal `json:"total_price"`
	LineItems  []LineItem      `json:"products"`
}

func NewOrderCreated(o Order) OrderCreated {
	return OrderCreated{
		OrderID:    o.ID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		LineItems:  o.LineItems,
	}
}
