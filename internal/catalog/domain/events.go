package domain

import "github.com/shopspring/decimal"

const EventProductCreated = "ProductCreated"

type ProductCreated struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}
