// Package events announces captured orders to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/orders"
	"github.com/segmentio/kafka-go"
)

const (
	TopicOrdersCaptured    = "orders-captured"
	EventTypeOrderCaptured = "order.captured"
)

type Publisher interface {
	PublishOrderCaptured(ctx context.Context, o *orders.Order) error
	Close() error
}

// OrderCaptured is the message body written for every recorded order.
type OrderCaptured struct {
	OrderID       int64         `json:"order_id"`
	PayPalOrderID string        `json:"paypal_order_id"`
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Status        string        `json:"status"`
	PayerEmail    string        `json:"payer_email,omitempty"`
	Items         []orders.Item `json:"items"`
	CapturedAt    time.Time     `json:"captured_at"`
}

func NewOrderCaptured(o *orders.Order) OrderCaptured {
	return OrderCaptured{
		OrderID:       o.ID,
		PayPalOrderID: o.PayPalOrderID,
		Amount:        o.AmountString(),
		Currency:      o.Currency,
		Status:        o.Status,
		PayerEmail:    o.PayerEmail,
		Items:         o.Items,
		CapturedAt:    o.CreatedAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrdersCaptured,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishOrderCaptured(ctx context.Context, o *orders.Order) error {
	payload, err := json.Marshal(NewOrderCaptured(o))
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(o.PayPalOrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderCaptured)},
			{Key: "order_id", Value: []byte(strconv.FormatInt(o.ID, 10))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %d: %w", o.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderCaptured(context.Context, *orders.Order) error { return nil }
func (Nop) Close() error                                            { return nil }
