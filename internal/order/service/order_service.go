package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/feed"
)

// recentWindow bounds the working set: orders older than this are history.
const recentWindow = 30 * 24 * time.Hour

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListSince(ctx context.Context, since time.Time) ([]domain.Order, error)
	ListUnprinted(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	UpdateTotals(ctx context.Context, tx *sql.Tx, id string, subtotal, tax, total decimal.Decimal, status string) error
	MarkPaid(ctx context.Context, id string, method string) error
	MarkPrinted(ctx context.Context, id string, at time.Time) error
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error)
	FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	FindByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error)
}

type MenuReader interface {
	FindItem(ctx context.Context, id int64) (*domain.MenuItem, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (*domain.RestaurantSettings, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}

// NewItem is one requested line on a create or add-items call. Name and price
// are snapshotted from the menu at execution time.
type NewItem struct {
	MenuItemID int64
	Quantity   int
	Notes      *string
}

type CreateOrderInput struct {
	TableNumber  *int
	SourceID     *int64
	CustomerName *string
	Items        []NewItem
}

type OrderService struct {
	db               TransactionManager
	orderRepo        OrderRepository
	itemRepo         OrderItemRepository
	menu             MenuReader
	settings         SettingsReader
	publisher        Publisher
	logger           *zap.Logger
	maxRetryAttempts int
}

func NewOrderService(
	db TransactionManager,
	orderRepo OrderRepository,
	itemRepo OrderItemRepository,
	menu MenuReader,
	settings SettingsReader,
	publisher Publisher,
	logger *zap.Logger,
	maxRetryAttempts int,
) *OrderService {
	return &OrderService{
		db:               db,
		orderRepo:        orderRepo,
		itemRepo:         itemRepo,
		menu:             menu,
		settings:         settings,
		publisher:        publisher,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
	}
}

// Create places a new order: snapshots menu names and prices, computes the
// tax-inclusive split at the configured rate, and writes order plus items in
// one transaction.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, "", input.Items)
	if err != nil {
		return nil, err
	}

	total := domain.ItemsTotal(items)
	subtotal, tax := domain.SplitInclusive(total, settings.TaxPercent)

	now := time.Now().UTC()
	order := &domain.Order{
		ID:           uuid.NewString(),
		TableNumber:  input.TableNumber,
		SourceID:     input.SourceID,
		CustomerName: input.CustomerName,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        total,
		Status:       domain.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i := range items {
		items[i].OrderID = order.ID
	}

	err = s.withRetry(ctx, order.ID, func() error {
		return s.insertOrderTx(ctx, order, items)
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	s.logger.Info("order created",
		zap.String("orderId", order.ID),
		zap.Int("itemCount", len(items)),
		zap.String("total", total.StringFixed(2)))

	s.publish(ctx, feed.Event{Type: feed.EventOrderCreated, OrderID: order.ID, Status: order.Status})

	return s.Get(ctx, order.ID)
}

func (s *OrderService) insertOrderTx(ctx context.Context, order *domain.Order, items []domain.OrderItem) error {
	txCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Rollback after commit is a no-op.
	defer tx.Rollback()

	if err := s.orderRepo.Insert(txCtx, tx, order); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := s.itemRepo.Insert(txCtx, tx, item); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AddItems appends items to an existing order, recomputes the tax-inclusive
// split over the combined total at the current configured rate, and resets
// status to pending so the kitchen is re-notified.
func (s *OrderService) AddItems(ctx context.Context, orderID string, newItems []NewItem) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusServed {
		return nil, apperrors.NewConflictError("order is already " + order.Status)
	}
	if order.Paid {
		return nil, apperrors.NewConflictError("order is already paid")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, orderID, newItems)
	if err != nil {
		return nil, err
	}

	newTotal := order.Total.Add(domain.ItemsTotal(items))
	subtotal, tax := domain.SplitInclusive(newTotal, settings.TaxPercent)

	err = s.withRetry(ctx, orderID, func() error {
		return s.addItemsTx(ctx, orderID, items, subtotal, tax, newTotal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("items added to order",
		zap.String("orderId", orderID),
		zap.Int("itemCount", len(items)),
		zap.String("total", newTotal.StringFixed(2)))

	s.publish(ctx, feed.Event{Type: feed.EventOrderUpdated, OrderID: orderID, Status: domain.OrderStatusPending})

	return s.Get(ctx, orderID)
}

func (s *OrderService) addItemsTx(ctx context.Context, orderID string, items []domain.OrderItem, subtotal, tax, total decimal.Decimal) error {
	txCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := s.itemRepo.Insert(txCtx, tx, item); err != nil {
			return err
		}
	}

	if err := s.orderRepo.UpdateTotals(txCtx, tx, orderID, subtotal, tax, total, domain.OrderStatusPending); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateStatus moves an order forward in its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of pending, preparing, ready, served, cancelled",
		})
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(order.Status, status) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("orderId", orderID),
		zap.String("from", order.Status),
		zap.String("to", status))

	s.publish(ctx, feed.Event{Type: feed.EventOrderUpdated, OrderID: orderID, Status: status})

	return s.Get(ctx, orderID)
}

// RecordPayment marks an order paid with the given method.
func (s *OrderService) RecordPayment(ctx context.Context, orderID string, method string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Paid {
		return nil, apperrors.NewConflictError("order is already paid")
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, apperrors.NewConflictError("order is cancelled")
	}

	if err := s.orderRepo.MarkPaid(ctx, orderID, method); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("orderId", orderID),
		zap.String("method", method))

	s.publish(ctx, feed.Event{Type: feed.EventOrderUpdated, OrderID: orderID, Status: order.Status})

	return s.Get(ctx, orderID)
}

// Get returns one order with items hydrated.
func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.itemRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// Recent returns the bounded working set: orders from the last 30 days,
// items hydrated, newest first.
func (s *OrderService) Recent(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListSince(ctx, time.Now().UTC().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, orders)
}

// Unprinted returns orders lacking a printed marker, items hydrated,
// ascending by creation time.
func (s *OrderService) Unprinted(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListUnprinted(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, orders)
}

func (s *OrderService) MarkPrinted(ctx context.Context, orderID string, at time.Time) error {
	return s.orderRepo.MarkPrinted(ctx, orderID, at)
}

func (s *OrderService) hydrate(ctx context.Context, orders []domain.Order) ([]domain.Order, error) {
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	byOrder, err := s.itemRepo.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (s *OrderService) snapshotItems(ctx context.Context, orderID string, requested []NewItem) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(requested))
	for _, req := range requested {
		menuItem, err := s.menu.FindItem(ctx, req.MenuItemID)
		if err != nil {
			return nil, err
		}
		if !menuItem.Available {
			return nil, apperrors.NewConflictError(fmt.Sprintf("menu item %q is not available", menuItem.Name))
		}

		id := menuItem.ID
		items = append(items, domain.OrderItem{
			OrderID:    orderID,
			MenuItemID: &id,
			Name:       menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   req.Quantity,
			Notes:      req.Notes,
		})
	}
	return items, nil
}

// publish reports the mutation on the change feed. Feed failures must not
// fail the mutation itself.
func (s *OrderService) publish(ctx context.Context, ev feed.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publishing change-feed event failed",
			zap.String("type", ev.Type),
			zap.String("orderId", ev.OrderID),
			zap.Error(err))
	}
}

// withRetry retries fn on MySQL deadlock with backoff and jitter.
func (s *OrderService) withRetry(ctx context.Context, orderID string, fn func() error) error {
	maxAttempts := s.maxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !isDeadlockError(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		backoff := backoffs[len(backoffs)-1]
		if attempt-1 < len(backoffs) {
			backoff = backoffs[attempt-1]
		}
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		s.logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.String("orderId", orderID))

		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return apperrors.NewConflictError("max retries exceeded")
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
