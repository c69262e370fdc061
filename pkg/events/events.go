package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

// NoopEventBus drops every event. Used when NATS is disabled.
type NoopEventBus struct{}

func (NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event bus disabled, dropping event", "subject", subject)
	return nil
}

func (NoopEventBus) Subscribe(string, func(msg *Message)) error { return nil }

func (NoopEventBus) Close() error { return nil }

const (
	ReservationConfirmed = "reservation.confirmed"
	ReservationFailed    = "reservation.failed"
	StallsReleased       = "stalls.released"
)

type ReservationConfirmedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Email         string    `json:"email"`
	PublisherName string    `json:"publisher_name"`
	Stalls        []string  `json:"stalls"`
	QRURL         string    `json:"qr_url"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

type ReservationFailedEvent struct {
	ReservationID string    `json:"reservation_id"`
	Email         string    `json:"email"`
	FailedStep    string    `json:"failed_step"`
	Errors        []string  `json:"errors"`
	FailedAt      time.Time `json:"failed_at"`
}

type StallsReleasedEvent struct {
	Stalls     []string  `json:"stalls"`
	ReleasedBy string    `json:"released_by"`
	Reason     string    `json:"reason"`
	ReleasedAt time.Time `json:"released_at"`
}
