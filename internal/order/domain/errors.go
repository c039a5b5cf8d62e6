package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrOrderValidation matches every domain rejection of an order request.
	ErrOrderValidation = errors.New("order validation failed")

	ErrOrderNotFound = errors.New("order not found")

	ErrInvalidStatus    = errors.New("invalid order status")
	ErrNoLineItems      = errors.New("there must be at least one product in the order")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
)

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrOrderValidation }

// OutOfStockError lists every product whose requested quantity exceeded stock.
type OutOfStockError struct {
	ProductIDs []int64
}

func (e *OutOfStockError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("products [%s] are out of stock", strings.Join(ids, ", "))
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOrderValidation }
