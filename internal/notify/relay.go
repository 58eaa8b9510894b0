// Package notify surfaces ephemeral alerts for order lifecycle events,
// independent of printing.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/feed"
)

// Notification is one panel entry. Chime marks entries that should also play
// the two-tone alert on the client.
type Notification struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Chime     bool      `json:"chime"`
	CreatedAt time.Time `json:"createdAt"`
}

// Sink receives notifications as they are raised, for push delivery. Optional.
type Sink interface {
	Notify(n Notification)
}

type Relay struct {
	warmup  time.Duration
	ttl     time.Duration
	max     int
	started time.Time
	sink    Sink
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries []Notification
}

func NewRelay(warmup, ttl time.Duration, max int, sink Sink, logger *zap.Logger) *Relay {
	return &Relay{
		warmup:  warmup,
		ttl:     ttl,
		max:     max,
		started: time.Now(),
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleEvent consumes the change feed. Inserts always alert; updates alert
// only on a transition into pending, which covers items added to an existing
// order. Everything is suppressed during the warm-up window so the initial
// bulk load of pre-existing orders stays silent.
func (r *Relay) HandleEvent(ctx context.Context, ev feed.Event) error {
	if r.now().Sub(r.started) < r.warmup {
		return nil
	}

	switch ev.Type {
	case feed.EventOrderCreated:
		r.raise(Notification{
			OrderID: ev.OrderID,
			Title:   "New order",
			Message: "Order received",
			Chime:   true,
		})
	case feed.EventOrderUpdated:
		if ev.Status != domain.OrderStatusPending {
			return nil
		}
		r.raise(Notification{
			OrderID: ev.OrderID,
			Title:   "Order updated",
			Message: "Items added to order",
			Chime:   true,
		})
	}

	return nil
}

func (r *Relay) raise(n Notification) {
	n.ID = uuid.NewString()
	n.CreatedAt = r.now()

	r.mu.Lock()
	r.entries = append(r.entries, n)
	r.prune()
	r.mu.Unlock()

	r.logger.Info("notification raised",
		zap.String("orderId", n.OrderID),
		zap.String("title", n.Title))

	if r.sink != nil {
		r.sink.Notify(n)
	}
}

// Recent returns live panel entries, newest first.
func (r *Relay) Recent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune()
	out := make([]Notification, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		out = append(out, r.entries[i])
	}
	return out
}

// prune drops expired entries and caps the list. Caller holds r.mu.
func (r *Relay) prune() {
	cutoff := r.now().Add(-r.ttl)
	kept := r.entries[:0]
	for _, n := range r.entries {
		if n.CreatedAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	r.entries = kept

	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}
