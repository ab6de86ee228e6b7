package store

import (
	"errors"
	"fmt"

	"github.com/safar/go-commerce/internal/database"
	"github.com/safar/go-commerce/internal/models"
)

// ErrValidation is the sentinel behind every request-validation failure
// (empty item list, non-positive quantity, unknown status name, transition
// not permitted by the lifecycle). Match with errors.Is.
var ErrValidation = errors.New("invalid request")

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientStockError reports a stock check failure for one product.
// errors.Is(err, database.ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == database.ErrInsufficientStock
}

// NotCancellableError reports a cancel attempt on an order in a terminal
// state. errors.Is(err, database.ErrNotCancellable) matches it.
type NotCancellableError struct {
	OrderID int64
	Status  models.OrderStatus
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("order %d cannot be cancelled in status %s", e.OrderID, e.Status)
}

func (e *NotCancellableError) Is(target error) bool {
	return target == database.ErrNotCancellable
}
