package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"orders/internal/domain"
	"orders/internal/infrastructure/rabbitmq"
	"orders/internal/repository/order_repo"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order data")

	// ErrMalformedMessage marks a completion message that can never be
	// processed and belongs on the dead-letter path, not in redelivery.
	ErrMalformedMessage = errors.New("malformed payment completion message")
)

type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(ctx context.Context, orderID int64) (*OrderResponse, error)
	GetAllOrders(ctx context.Context) ([]*OrderResponse, error)
	HandlePaymentCompleted(ctx context.Context, event *PaymentCompletedEvent) error
}

type orderService struct {
	orderRepo order_repo.OrderRepository
	publisher rabbitmq.Publisher
	logger    *zap.Logger
}

func NewOrderService(
	orderRepo order_repo.OrderRepository,
	publisher rabbitmq.Publisher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	order, err := domain.NewOrder(req.UserID, req.ProductID, req.Quantity, req.TotalPrice)
	if err != nil {
		s.logger.Warn("Rejected order creation request", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	order, err = s.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		s.logger.Error("Failed to persist order", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, errors.New("failed to create order")
	}

	s.publishOrderCreated(ctx, order)

	return mapOrderToResponse(order), nil
}

// publishOrderCreated announces a persisted order, best effort. The order is
// already committed, so a publish failure is logged and swallowed rather than
// rolling anything back; a crash between commit and publish loses the event
// the same way. Closing that gap would take a durable outbox.
func (s *orderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	event := OrderCreatedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice.String(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal order created event", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, RoutingKeyOrderCreated, payload); err != nil {
		s.logger.Error("Failed to publish order created event, order persisted without it",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
		return
	}
	s.logger.Info("Order created event published", zap.Int64("order_id", order.ID))
}

func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*OrderResponse, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("Order not found", zap.Int64("order_id", orderID))
			return nil, ErrOrderNotFound
		}
		s.logger.Error("Failed to get order from repository", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrderToResponse(order), nil
}

func (s *orderService) GetAllOrders(ctx context.Context) ([]*OrderResponse, error) {
	orders, err := s.orderRepo.GetAllOrders(ctx)
	if err != nil {
		s.logger.Error("Failed to get all orders from repository", zap.Error(err))
		return nil, errors.New("internal server error")
	}
	return mapOrdersToResponse(orders), nil
}

func (s *orderService) HandlePaymentCompleted(ctx context.Context, event *PaymentCompletedEvent) error {
	if event == nil || event.OrderID <= 0 {
		return ErrMalformedMessage
	}

	order, err := s.orderRepo.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The order row may simply not be visible yet; redelivery will
			// find it. Never fabricate a record here.
			s.logger.Warn("Order not found for payment completion, retryable", zap.Int64("order_id", event.OrderID))
			return ErrOrderNotFound
		}
		s.logger.Error("Failed to retrieve order for payment completion", zap.Int64("order_id", event.OrderID), zap.Error(err))
		return fmt.Errorf("failed to retrieve order %d: %w", event.OrderID, err)
	}

	switch order.Status {
	case domain.OrderStatusPaid:
		s.logger.Info("Order already PAID, payment completion is a no-op", zap.Int64("order_id", order.ID))
		return nil
	case domain.OrderStatusPending:
		// fall through to the conditional update below
	default:
		s.logger.Warn("No transition defined for payment completion from current status",
			zap.Int64("order_id", order.ID),
			zap.String("status", string(order.Status)))
		return fmt.Errorf("no transition defined from status %q for order %d", order.Status, order.ID)
	}

	err = s.orderRepo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the compare-and-set. A concurrent duplicate having already
			// moved the order to PAID is the designed outcome; anything else
			// goes back for redelivery.
			current, readErr := s.orderRepo.GetOrderByID(ctx, order.ID)
			if readErr == nil && current.Status == domain.OrderStatusPaid {
				s.logger.Info("Order moved to PAID concurrently, payment completion is a no-op", zap.Int64("order_id", order.ID))
				return nil
			}
			s.logger.Warn("Conditional status update missed and order is not PAID, retryable", zap.Int64("order_id", order.ID))
			return fmt.Errorf("conditional update missed for order %d", order.ID)
		}
		s.logger.Error("Failed to update order status", zap.Int64("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to update status of order %d: %w", order.ID, err)
	}

	s.logger.Info("Order marked as PAID", zap.Int64("order_id", order.ID))
	return nil
}

func mapOrderToResponse(order *domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:         order.ID,
		UserID:     order.UserID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
	}
}

func mapOrdersToResponse(orders []*domain.Order) []*OrderResponse {
	responses := make([]*OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = mapOrderToResponse(order)
	}
	return responses
}
