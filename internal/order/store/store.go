// Package store keeps an in-memory replica of the recent order window,
// refreshed in full on every change-feed event. Full refetch over incremental
// patching is a deliberate simplicity tradeoff at restaurant-scale volumes.
package store

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/feed"
)

type Loader interface {
	Recent(ctx context.Context) ([]domain.Order, error)
}

type Store struct {
	loader Loader
	logger *zap.Logger

	mu     sync.RWMutex
	orders []domain.Order
}

func New(loader Loader, logger *zap.Logger) *Store {
	return &Store{loader: loader, logger: logger}
}

// Refresh reloads the full recent window from the backing store.
func (s *Store) Refresh(ctx context.Context) error {
	orders, err := s.loader.Recent(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()

	s.logger.Debug("order store refreshed", zap.Int("orders", len(orders)))
	return nil
}

// HandleEvent refreshes the replica on any order event.
func (s *Store) HandleEvent(ctx context.Context, ev feed.Event) error {
	if !strings.HasPrefix(ev.Type, "order.") {
		return nil
	}
	return s.Refresh(ctx)
}

// Orders returns a copy of the current snapshot.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// TableStatus derives a table's state from its active orders. Priority when
// several active orders exist: ready > preparing > ordered.
func (s *Store) TableStatus(tableNumber int) domain.TableStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.TableFree
	for i := range s.orders {
		o := &s.orders[i]
		if o.TableNumber == nil || *o.TableNumber != tableNumber || !o.IsActive() {
			continue
		}

		switch o.Status {
		case domain.OrderStatusReady:
			return domain.TableReady
		case domain.OrderStatusPreparing:
			status = domain.TablePreparing
		default:
			if status == domain.TableFree {
				status = domain.TableOrdered
			}
		}
	}
	return status
}

// ActiveOrderForTable returns the first active order for a table, or nil.
func (s *Store) ActiveOrderForTable(tableNumber int) *domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.orders {
		o := s.orders[i]
		if o.TableNumber != nil && *o.TableNumber == tableNumber && o.IsActive() {
			return &o
		}
	}
	return nil
}

// ActiveOrdersForSource returns the active orders for an order source.
func (s *Store) ActiveOrdersForSource(sourceID int64) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Order
	for i := range s.orders {
		o := s.orders[i]
		if o.SourceID != nil && *o.SourceID == sourceID && o.IsActive() {
			out = append(out, o)
		}
	}
	return out
}
