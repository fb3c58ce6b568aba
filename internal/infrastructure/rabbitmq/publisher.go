package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher delivers domain events to a single exchange. Delivery is
// at-least-once from the publisher's perspective: a nil return means the
// broker accepted the message, not that any subscriber has seen it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

type amqpPublisher struct {
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

func NewPublisher(conn *amqp.Connection, exchange string, l *zap.Logger) (Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	l.Info("RabbitMQ publisher initialized", zap.String("exchange", exchange))
	return &amqpPublisher{channel: ch, exchange: exchange, logger: l}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug("Published message",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", routingKey))
	return nil
}

func (p *amqpPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Error("Failed to close publisher channel", zap.Error(err))
		return fmt.Errorf("failed to close publisher channel: %w", err)
	}
	p.logger.Info("RabbitMQ publisher closed.")
	return nil
}
