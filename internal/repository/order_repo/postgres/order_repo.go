package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"orders/internal/domain"
	"orders/internal/repository/order_repo"
)

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

func (r *pgOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	query := `INSERT INTO orders (user_id, product_id, quantity, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		order.UserID, order.ProductID, order.Quantity, order.TotalPrice, order.Status, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		r.logger.Error("Failed to create order", zap.String("user_id", order.UserID), zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	r.logger.Debug("Order created successfully", zap.Int64("order_id", order.ID))
	return order, nil
}

func (r *pgOrderRepository) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}
	query := `SELECT id, user_id, product_id, quantity, total_price, status, created_at FROM orders WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.UserID, &order.ProductID, &order.Quantity, &order.TotalPrice, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to get order by ID", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return order, nil
}

func (r *pgOrderRepository) GetAllOrders(ctx context.Context) ([]*domain.Order, error) {
	var orders []*domain.Order
	query := `SELECT id, user_id, product_id, quantity, total_price, status, created_at FROM orders ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query all orders", zap.Error(err))
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.ProductID, &order.Quantity, &order.TotalPrice, &order.Status, &order.CreatedAt); err != nil {
			r.logger.Error("Failed to scan row for all orders", zap.Error(err))
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Rows error for all orders", zap.Error(err))
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	// Single-row conditional update: the WHERE clause on the current status is
	// what makes a duplicate completion message a no-op instead of a race.
	query := `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Int64("order_id", id), zap.Error(err))
		return fmt.Errorf("failed to update status of order %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		r.logger.Error("Failed to get rows affected for status update", zap.Int64("order_id", id), zap.Error(err))
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("No rows affected when updating order status, order missing or status already changed",
			zap.Int64("order_id", id),
			zap.String("expected_status", string(from)))
		return sql.ErrNoRows
	}
	r.logger.Debug("Order status updated successfully",
		zap.Int64("order_id", id),
		zap.String("new_status", string(to)))
	return nil
}
