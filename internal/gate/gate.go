// Package gate decides which orders receive an automatic print and ensures
// each qualifying order is dispatched at most once per process. The persisted
// printed marker gives at-least-once semantics across restarts.
package gate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/feed"
	"comanda/internal/printer"
)

type Orders interface {
	// Unprinted returns orders lacking a printed marker, items hydrated,
	// ascending by creation time.
	Unprinted(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	MarkPrinted(ctx context.Context, id string, at time.Time) error
}

type Settings interface {
	Get(ctx context.Context) (*domain.RestaurantSettings, error)
}

type Printer interface {
	Active() bool
	PrintOrder(ctx context.Context, order *domain.Order, settings *domain.RestaurantSettings, printKitchen, skipCash bool) printer.Result
}

type Gate struct {
	orders      Orders
	settings    Settings
	printer     Printer
	keyed       *Keyed
	settleDelay time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func New(orders Orders, settings Settings, prn Printer, settleDelay time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		orders:      orders,
		settings:    settings,
		printer:     prn,
		keyed:       NewKeyed(),
		settleDelay: settleDelay,
		logger:      logger,
		now:         time.Now,
	}
}

// Sweep processes every unprinted order in ascending creation-time order.
// Run once at startup; failed orders stay unmarked and are retried on the
// next sweep or the next qualifying live event.
func (g *Gate) Sweep(ctx context.Context) {
	orders, err := g.orders.Unprinted(ctx)
	if err != nil {
		g.logger.Error("sweep query failed", zap.Error(err))
		return
	}

	g.logger.Info("print sweep started", zap.Int("candidates", len(orders)))
	for i := range orders {
		g.Process(ctx, &orders[i])
	}
}

// HandleEvent reacts to live change-feed events. New orders are processed
// after a short settle delay so their item rows have landed.
func (g *Gate) HandleEvent(ctx context.Context, ev feed.Event) error {
	if ev.Type != feed.EventOrderCreated {
		return nil
	}

	go func() {
		select {
		case <-time.After(g.settleDelay):
		case <-ctx.Done():
			return
		}

		order, err := g.orders.Get(ctx, ev.OrderID)
		if err != nil {
			g.logger.Error("loading order for auto-print", zap.String("orderId", ev.OrderID), zap.Error(err))
			return
		}
		g.Process(ctx, order)
	}()

	return nil
}

// Process runs one order through the gate: qualification checks, routing
// policy, dispatch, and marker persistence. Safe to call concurrently for the
// same order; only one invocation proceeds.
func (g *Gate) Process(ctx context.Context, order *domain.Order) {
	if order.PrintedAt != nil {
		return
	}
	if len(order.Items) == 0 {
		g.logger.Debug("skipping order without items", zap.String("orderId", order.ID))
		return
	}
	if !g.printer.Active() {
		g.logger.Debug("print service inactive, leaving order for retry", zap.String("orderId", order.ID))
		return
	}

	settings, err := g.settings.Get(ctx)
	if err != nil {
		g.logger.Error("loading settings for auto-print", zap.String("orderId", order.ID), zap.Error(err))
		return
	}

	if !g.keyed.TryAcquire(order.ID) {
		g.logger.Debug("order already in flight", zap.String("orderId", order.ID))
		return
	}
	defer g.keyed.Release(order.ID)

	// Routing policy: dine-in orders get the kitchen ticket only (the cash
	// receipt waits for payment); source orders get both. Kitchen printing
	// honors the per-restaurant toggle.
	printKitchen := settings.KitchenEnabled
	skipCash := order.IsDineIn()

	if !printKitchen && skipCash {
		g.logger.Debug("no documents requested for order", zap.String("orderId", order.ID))
		return
	}

	res := g.printer.PrintOrder(ctx, order, settings, printKitchen, skipCash)

	if !res.Requested() || !res.Success() {
		g.logger.Warn("auto-print incomplete, order left unmarked",
			zap.String("orderId", order.ID),
			zap.Strings("errors", res.Errors))
		return
	}

	if err := g.orders.MarkPrinted(ctx, order.ID, g.now().UTC()); err != nil {
		// The documents are already on paper; the next sweep may print them
		// again. Accepted failure mode.
		g.logger.Error("marking order printed failed", zap.String("orderId", order.ID), zap.Error(err))
		return
	}

	g.logger.Info("order auto-printed", zap.String("orderId", order.ID))
}
