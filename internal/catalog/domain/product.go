package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateName   = errors.New("product with same name already exists")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// MaxStock is the largest stock the products table can hold.
const MaxStock = math.MaxInt32

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
}

// NewProduct is the caller-supplied part of a product; the store assigns the rest.
type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

func (p NewProduct) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	case p.Stock > MaxStock:
		return fmt.Errorf("%w: stock cannot exceed %d", ErrInvalidProduct, MaxStock)
	}
	return nil
}
