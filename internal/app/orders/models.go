package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoutingKeyOrderCreated identifies creation announcements on the orders
// exchange.
const RoutingKeyOrderCreated = "order.created"

type CreateOrderRequest struct {
	UserID     string          `json:"userId"`
	ProductID  int64           `json:"productId"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type OrderResponse struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"userId"`
	ProductID  int64           `json:"productId"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// OrderCreatedEvent is published once per persisted order. TotalPrice is the
// exact decimal rendered as a string.
type OrderCreatedEvent struct {
	OrderID    int64  `json:"orderId"`
	UserID     string `json:"userId"`
	TotalPrice string `json:"totalPrice"`
}

// PaymentCompletedEvent is the inbound completion signal. Only orderId is
// required; anything else in the message is ignored.
type PaymentCompletedEvent struct {
	OrderID int64 `json:"orderId"`
}
