// Package events publishes order lifecycle events to an AMQP topic
// exchange. Publishing is best effort: callers log failures and move on, a
// broker outage must never fail a customer request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/sweetmart/sweetmart/internal/models"
)

const (
	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderStatusChanged = "order.status_changed"
	RoutingKeyOrderCancelled     = "order.cancelled"

	publishTimeout = 5 * time.Second
)

type OrderEvent struct {
	EventID     string             `json:"event_id"`
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	UserID      int64              `json:"user_id"`
	Status      models.OrderStatus `json:"status"`
	TotalPrice  decimal.Decimal    `json:"total_price"`
	Timestamp   time.Time          `json:"timestamp"`
}

func NewOrderEvent(order *models.Order) OrderEvent {
	return OrderEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		TotalPrice:  order.TotalPrice,
		Timestamp:   time.Now(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event OrderEvent) error
	Close() error
}

// AMQPPublisher publishes persistent JSON messages on a confirm-mode
// channel and waits for the broker acknowledgement. Publishes are
// serialized: the channel is not safe for concurrent use and each publish
// must be paired with its confirmation.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info().Str("exchange", exchange).Msg("AMQP publisher ready")

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		confirms: confirms,
		exchange: exchange,
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.Timestamp,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("publish %s: broker nacked delivery %d", routingKey, confirm.DeliveryTag)
		}
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: confirm timeout", routingKey)
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Debug().Str("routingKey", routingKey).Str("eventId", event.EventID).Msg("Published order event")
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, event OrderEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
