package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryHandler processes one delivery and is responsible for its
// ack/nack disposition.
type DeliveryHandler func(ctx context.Context, d amqp.Delivery)

// StartConsumer declares queue together with its dead-letter topology and
// consumes it with manual acknowledgement, dispatching each delivery to
// handler on a background goroutine. A Nack without requeue lands the message
// on <queue>.dlq via the <queue>.dlx exchange. When the delivery channel
// closes (channel-level failure), consumption is re-opened with a backoff
// until the underlying connection itself is gone.
func StartConsumer(conn *amqp.Connection, queue string, handler DeliveryHandler, l *zap.Logger) error {
	ch, msgs, err := openConsume(conn, queue)
	if err != nil {
		return err
	}

	l.Info("RabbitMQ consumer started", zap.String("queue", queue))

	go func() {
		for {
			for d := range msgs {
				handler(context.Background(), d)
			}
			_ = ch.Close()

			if conn.IsClosed() {
				l.Error("RabbitMQ connection lost, consumer stopped", zap.String("queue", queue))
				return
			}

			l.Warn("RabbitMQ delivery channel closed, re-opening", zap.String("queue", queue))
			for {
				time.Sleep(5 * time.Second)
				ch, msgs, err = openConsume(conn, queue)
				if err == nil {
					break
				}
				if conn.IsClosed() {
					l.Error("RabbitMQ connection lost, consumer stopped", zap.String("queue", queue), zap.Error(err))
					return
				}
				l.Warn("Failed to re-open RabbitMQ consumer, retrying", zap.String("queue", queue), zap.Error(err))
			}
		}
	}()
	return nil
}

func openConsume(conn *amqp.Connection, queue string) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	dlx := queue + ".dlx"
	dlq := queue + ".dlq"
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to declare dead-letter exchange %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to declare dead-letter queue %s: %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, "", dlx, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to bind dead-letter queue %s: %w", dlq, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlx,
	}); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to consume queue %s: %w", queue, err)
	}
	return ch, msgs, nil
}
