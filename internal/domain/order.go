package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
)

type Order struct {
	ID         int64
	UserID     string
	ProductID  int64
	Quantity   int
	TotalPrice decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
}

// NewOrder builds an unpersisted order in PENDING status. The ID stays zero
// until the repository assigns one.
func NewOrder(userID string, productID int64, quantity int, totalPrice decimal.Decimal) (*Order, error) {
	if userID == "" {
		return nil, errors.New("userId must not be empty")
	}
	if productID <= 0 {
		return nil, fmt.Errorf("productId must be positive, got %d", productID)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if !totalPrice.IsPositive() {
		return nil, fmt.Errorf("totalPrice must be positive, got %s", totalPrice)
	}
	return &Order{
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		Status:     OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// MarkAsPaid applies the only defined status transition, PENDING to PAID.
func (o *Order) MarkAsPaid() error {
	if o.Status != OrderStatusPending {
		return fmt.Errorf("order must be in PENDING status to become PAID, got %s", o.Status)
	}
	o.Status = OrderStatusPaid
	return nil
}
