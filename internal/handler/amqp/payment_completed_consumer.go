package amqp

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	app "orders/internal/app/orders"
)

// PaymentCompletedConsumer turns payment completion deliveries into order
// status transitions and decides each delivery's fate: ack on success or
// idempotent no-op, reject without requeue for unparsable payloads (the
// dead-letter path), requeue for everything transient.
type PaymentCompletedConsumer struct {
	orderService app.OrderService
	logger       *zap.Logger
}

func NewPaymentCompletedConsumer(s app.OrderService, l *zap.Logger) *PaymentCompletedConsumer {
	return &PaymentCompletedConsumer{orderService: s, logger: l}
}

func (c *PaymentCompletedConsumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	var event app.PaymentCompletedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Error("Unparsable payment completion message, rejecting to dead-letter",
			zap.String("raw_message", string(d.Body)),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	c.logger.Info("Received payment completion", zap.Int64("order_id", event.OrderID))

	err := c.orderService.HandlePaymentCompleted(ctx, &event)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("Failed to ack payment completion", zap.Int64("order_id", event.OrderID), zap.Error(ackErr))
		}
	case errors.Is(err, app.ErrMalformedMessage):
		c.logger.Error("Malformed payment completion message, rejecting to dead-letter",
			zap.String("raw_message", string(d.Body)),
			zap.Error(err))
		_ = d.Nack(false, false)
	default:
		c.logger.Warn("Payment completion failed, requeueing for redelivery",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		_ = d.Nack(false, true)
	}
}
