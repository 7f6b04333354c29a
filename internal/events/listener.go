// Package events consumes backend change notifications over AMQP and turns
// them into refresh triggers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Refresher is the slice of the service layer the listener needs.
type Refresher interface {
	RequestRefresh(memberID int64)
}

// Listener consumes balance events from a durable queue bound to a direct
// exchange and requests a refresh for the affected member. Bursts collapse
// in the service layer, so acking before the refresh completes is fine.
type Listener struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	refresher    Refresher
	logger       *slog.Logger
}

// NewListener dials the broker and declares the exchange, queue and binding.
func NewListener(url, exchangeName, queueName string, refresher Refresher, logger *slog.Logger) (*Listener, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	listener := &Listener{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		refresher:    refresher,
		logger:       logger,
	}

	if err := listener.setup(); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return listener, nil
}

func (l *Listener) setup() error {
	err := l.channel.ExchangeDeclare(
		l.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = l.channel.QueueDeclare(
		l.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = l.channel.QueueBind(
		l.queueName,    // queue name
		l.queueName,    // routing key (same as queue name for direct exchange)
		l.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Publish sends a balance event to the queue. Mostly useful for tooling and
// tests; in production the expense backend publishes.
func (l *Listener) Publish(ctx context.Context, event *BalanceEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = l.channel.PublishWithContext(
		ctx,
		l.exchangeName, // exchange
		l.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Consume blocks reading events until ctx is cancelled. Malformed events are
// rejected without requeue; valid ones trigger a coalesced refresh and ack
// immediately.
func (l *Listener) Consume(ctx context.Context) error {
	deliveries, err := l.channel.Consume(
		l.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	l.logger.Info("consuming balance events", "queue", l.queueName)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			event, err := BalanceEventFromJSON(delivery.Body)
			if err != nil {
				l.logger.Error("rejecting malformed event", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			l.logger.Info("balance event received",
				"member_id", event.MemberID, "group_id", event.GroupID, "kind", event.Kind)
			l.refresher.RequestRefresh(event.MemberID)
			delivery.Ack(false)
		}
	}
}

// Close releases the channel and connection.
func (l *Listener) Close() error {
	if l.channel != nil {
		l.channel.Close()
	}
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
