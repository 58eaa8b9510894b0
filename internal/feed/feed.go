package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Channel carries every change-feed event as a JSON envelope.
const Channel = "comanda.events"

const (
	EventOrderCreated    = "order.created"
	EventOrderUpdated    = "order.updated"
	EventMenuUpdated     = "menu.updated"
	EventSettingsUpdated = "settings.updated"
)

// Event is the change-feed envelope. OrderID and Status are set only for
// order events.
type Event struct {
	Type    string    `json:"type"`
	OrderID string    `json:"orderId,omitempty"`
	Status  string    `json:"status,omitempty"`
	At      time.Time `json:"at"`
}

// Handler consumes a single change-feed event. A handler error is logged and
// does not stop delivery to other handlers.
type Handler func(ctx context.Context, ev Event) error

type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	p.logger.Debug("event published", zap.String("type", ev.Type), zap.String("orderId", ev.OrderID))
	return nil
}

// Subscriber consumes the change feed and fans each event out to the
// registered handlers in registration order.
type Subscriber struct {
	rdb      *redis.Client
	logger   *zap.Logger
	handlers []Handler
}

func NewSubscriber(rdb *redis.Client, logger *zap.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, logger: logger}
}

func (s *Subscriber) Register(h Handler) {
	s.handlers = append(s.handlers, h)
}

// Run blocks consuming the feed until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to change feed: %w", err)
	}

	s.logger.Info("change feed subscribed", zap.String("channel", Channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.logger.Warn("dropping malformed feed event", zap.Error(err))
				continue
			}

			s.Dispatch(ctx, ev)
		}
	}
}

// Dispatch delivers one event to every registered handler.
func (s *Subscriber) Dispatch(ctx context.Context, ev Event) {
	for _, h := range s.handlers {
		if err := h(ctx, ev); err != nil {
			s.logger.Error("feed handler failed",
				zap.String("type", ev.Type),
				zap.String("orderId", ev.OrderID),
				zap.Error(err))
		}
	}
}
