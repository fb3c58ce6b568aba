package order_repo

import (
	"context"

	"orders/internal/domain"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	GetAllOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateOrderStatus is a compare-and-set keyed on (id, from): it succeeds
	// only if the row currently holds the expected status, and reports
	// sql.ErrNoRows otherwise.
	UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error
}
