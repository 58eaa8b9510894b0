package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/feed"
)

// Helper to create a MySQL deadlock error for testing
func createDeadlockError() error {
	return &mysql.MySQLError{Number: 1213}
}

// Mock implementations

type mockTxManager struct {
	BeginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTxManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.BeginTxFunc(ctx, opts)
}

type mockOrderRepository struct {
	InsertFunc       func(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindByIDFunc     func(ctx context.Context, id string) (*domain.Order, error)
	ListSinceFunc    func(ctx context.Context, since time.Time) ([]domain.Order, error)
	ListUnprintedFnc func(ctx context.Context) ([]domain.Order, error)
	UpdateStatusFunc func(ctx context.Context, id string, status string) error
	UpdateTotalsFunc func(ctx context.Context, tx *sql.Tx, id string, subtotal, tax, total decimal.Decimal, status string) error
	MarkPaidFunc     func(ctx context.Context, id string, method string) error
	MarkPrintedFunc  func(ctx context.Context, id string, at time.Time) error
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	return m.InsertFunc(ctx, tx, order)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockOrderRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	return m.ListSinceFunc(ctx, since)
}

func (m *mockOrderRepository) ListUnprinted(ctx context.Context) ([]domain.Order, error) {
	return m.ListUnprintedFnc(ctx)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return m.UpdateStatusFunc(ctx, id, status)
}

func (m *mockOrderRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, id string, subtotal, tax, total decimal.Decimal, status string) error {
	return m.UpdateTotalsFunc(ctx, tx, id, subtotal, tax, total, status)
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id string, method string) error {
	return m.MarkPaidFunc(ctx, id, method)
}

func (m *mockOrderRepository) MarkPrinted(ctx context.Context, id string, at time.Time) error {
	return m.MarkPrintedFunc(ctx, id, at)
}

type mockOrderItemRepository struct {
	InsertFunc         func(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error)
	FindByOrderIDFunc  func(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	FindByOrderIDsFunc func(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error)
}

func (m *mockOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error) {
	return m.InsertFunc(ctx, tx, item)
}

func (m *mockOrderItemRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return m.FindByOrderIDFunc(ctx, orderID)
}

func (m *mockOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	return m.FindByOrderIDsFunc(ctx, orderIDs)
}

type mockMenuReader struct {
	FindItemFunc func(ctx context.Context, id int64) (*domain.MenuItem, error)
}

func (m *mockMenuReader) FindItem(ctx context.Context, id int64) (*domain.MenuItem, error) {
	return m.FindItemFunc(ctx, id)
}

type mockSettingsReader struct {
	settings *domain.RestaurantSettings
}

func (m *mockSettingsReader) Get(ctx context.Context) (*domain.RestaurantSettings, error) {
	return m.settings, nil
}

type mockPublisher struct {
	events []feed.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, ev feed.Event) error {
	m.events = append(m.events, ev)
	return m.err
}

func testSettings() *domain.RestaurantSettings {
	return &domain.RestaurantSettings{
		Name:       "Test Restaurant",
		TaxPercent: decimal.RequireFromString("10"),
	}
}

func newTestService(
	db TransactionManager,
	orderRepo OrderRepository,
	itemRepo OrderItemRepository,
	menu MenuReader,
	publisher Publisher,
) *OrderService {
	return NewOrderService(
		db,
		orderRepo,
		itemRepo,
		menu,
		&mockSettingsReader{settings: testSettings()},
		publisher,
		zap.NewNop(),
		3, // Default max retry attempts
	)
}

// Tests

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := newTestService(nil, &mockOrderRepository{}, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), "order-1", "delivered")

	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, ok := apperrors.IsValidationError(err); !ok {
		t.Errorf("expected ValidationError, got %T", err)
	}
}

func TestUpdateStatus_OrderNotFound(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return nil, apperrors.NewNotFoundError("order not found")
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.OrderStatusReady)

	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateStatus_BackwardsTransitionRejected(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusReady}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), "order-1", domain.OrderStatusPreparing)

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestUpdateStatus_PublishesEvent(t *testing.T) {
	updated := false
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			if updated {
				return &domain.Order{ID: id, Status: domain.OrderStatusPreparing}, nil
			}
			return &domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id string, status string) error {
			updated = true
			return nil
		},
	}
	itemRepo := &mockOrderItemRepository{
		FindByOrderIDFunc: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return nil, nil
		},
	}
	publisher := &mockPublisher{}
	svc := newTestService(nil, orderRepo, itemRepo, &mockMenuReader{}, publisher)

	order, err := svc.UpdateStatus(context.Background(), "order-1", domain.OrderStatusPreparing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPreparing {
		t.Errorf("expected status preparing, got %s", order.Status)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	if publisher.events[0].Type != feed.EventOrderUpdated {
		t.Errorf("expected order.updated event, got %s", publisher.events[0].Type)
	}
	if publisher.events[0].Status != domain.OrderStatusPreparing {
		t.Errorf("expected event status preparing, got %s", publisher.events[0].Status)
	}
}

func TestRecordPayment_AlreadyPaid(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusServed, Paid: true}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.RecordPayment(context.Background(), "order-1", "cash")

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestRecordPayment_CancelledOrder(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusCancelled}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.RecordPayment(context.Background(), "order-1", "cash")

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestRecordPayment_Success(t *testing.T) {
	paid := false
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			method := "card"
			if paid {
				return &domain.Order{ID: id, Status: domain.OrderStatusServed, Paid: true, PaymentMethod: &method}, nil
			}
			return &domain.Order{ID: id, Status: domain.OrderStatusServed}, nil
		},
		MarkPaidFunc: func(ctx context.Context, id string, method string) error {
			if method != "card" {
				t.Errorf("expected method card, got %s", method)
			}
			paid = true
			return nil
		},
	}
	itemRepo := &mockOrderItemRepository{
		FindByOrderIDFunc: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return nil, nil
		},
	}
	publisher := &mockPublisher{}
	svc := newTestService(nil, orderRepo, itemRepo, &mockMenuReader{}, publisher)

	order, err := svc.RecordPayment(context.Background(), "order-1", "card")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.Paid {
		t.Errorf("expected order to be paid")
	}
	if len(publisher.events) != 1 {
		t.Errorf("expected 1 event, got %d", len(publisher.events))
	}
}

func TestAddItems_CancelledOrder(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusCancelled}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.AddItems(context.Background(), "order-1", []NewItem{{MenuItemID: 1, Quantity: 1}})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestAddItems_PaidOrder(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusReady, Paid: true}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, &mockMenuReader{}, &mockPublisher{})

	_, err := svc.AddItems(context.Background(), "order-1", []NewItem{{MenuItemID: 1, Quantity: 1}})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestAddItems_UnavailableMenuItem(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusPending, Total: decimal.Zero}, nil
		},
	}
	menu := &mockMenuReader{
		FindItemFunc: func(ctx context.Context, id int64) (*domain.MenuItem, error) {
			return &domain.MenuItem{ID: id, Name: "Off Menu", Available: false}, nil
		},
	}
	svc := newTestService(nil, orderRepo, &mockOrderItemRepository{}, menu, &mockPublisher{})

	_, err := svc.AddItems(context.Background(), "order-1", []NewItem{{MenuItemID: 1, Quantity: 1}})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestCreate_UnavailableMenuItem(t *testing.T) {
	menu := &mockMenuReader{
		FindItemFunc: func(ctx context.Context, id int64) (*domain.MenuItem, error) {
			return &domain.MenuItem{ID: id, Name: "Off Menu", Available: false}, nil
		},
	}
	svc := newTestService(nil, &mockOrderRepository{}, &mockOrderItemRepository{}, menu, &mockPublisher{})

	table := 1
	_, err := svc.Create(context.Background(), CreateOrderInput{
		TableNumber: &table,
		Items:       []NewItem{{MenuItemID: 1, Quantity: 2}},
	})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestCreate_MissingMenuItem(t *testing.T) {
	menu := &mockMenuReader{
		FindItemFunc: func(ctx context.Context, id int64) (*domain.MenuItem, error) {
			return nil, apperrors.NewNotFoundError("menu item not found")
		},
	}
	svc := newTestService(nil, &mockOrderRepository{}, &mockOrderItemRepository{}, menu, &mockPublisher{})

	table := 1
	_, err := svc.Create(context.Background(), CreateOrderInput{
		TableNumber: &table,
		Items:       []NewItem{{MenuItemID: 42, Quantity: 1}},
	})

	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestCreate_DeadlockRetriesExhausted(t *testing.T) {
	attempts := 0
	txManager := &mockTxManager{
		BeginTxFunc: func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
			attempts++
			return nil, createDeadlockError()
		},
	}
	menu := &mockMenuReader{
		FindItemFunc: func(ctx context.Context, id int64) (*domain.MenuItem, error) {
			return &domain.MenuItem{ID: id, Name: "Soup", Price: decimal.RequireFromString("5.00"), Available: true}, nil
		},
	}
	svc := newTestService(txManager, &mockOrderRepository{}, &mockOrderItemRepository{}, menu, &mockPublisher{})

	table := 1
	_, err := svc.Create(context.Background(), CreateOrderInput{
		TableNumber: &table,
		Items:       []NewItem{{MenuItemID: 1, Quantity: 1}},
	})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Errorf("expected ConflictError after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestCreate_NonDeadlockErrorNotRetried(t *testing.T) {
	attempts := 0
	txManager := &mockTxManager{
		BeginTxFunc: func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
			attempts++
			return nil, sql.ErrConnDone
		},
	}
	menu := &mockMenuReader{
		FindItemFunc: func(ctx context.Context, id int64) (*domain.MenuItem, error) {
			return &domain.MenuItem{ID: id, Name: "Soup", Price: decimal.RequireFromString("5.00"), Available: true}, nil
		},
	}
	svc := newTestService(txManager, &mockOrderRepository{}, &mockOrderItemRepository{}, menu, &mockPublisher{})

	table := 1
	_, err := svc.Create(context.Background(), CreateOrderInput{
		TableNumber: &table,
		Items:       []NewItem{{MenuItemID: 1, Quantity: 1}},
	})

	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestGet_HydratesItems(t *testing.T) {
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusPending}, nil
		},
	}
	itemRepo := &mockOrderItemRepository{
		FindByOrderIDFunc: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return []domain.OrderItem{{Name: "Soup", Quantity: 1}}, nil
		},
	}
	svc := newTestService(nil, orderRepo, itemRepo, &mockMenuReader{}, &mockPublisher{})

	order, err := svc.Get(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Name != "Soup" {
		t.Errorf("expected hydrated items, got %+v", order.Items)
	}
}

func TestUnprinted_HydratesItems(t *testing.T) {
	orderRepo := &mockOrderRepository{
		ListUnprintedFnc: func(ctx context.Context) ([]domain.Order, error) {
			return []domain.Order{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	itemRepo := &mockOrderItemRepository{
		FindByOrderIDsFunc: func(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
			return map[string][]domain.OrderItem{
				"a": {{Name: "Soup", Quantity: 1}},
			}, nil
		},
	}
	svc := newTestService(nil, orderRepo, itemRepo, &mockMenuReader{}, &mockPublisher{})

	orders, err := svc.Unprinted(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if len(orders[0].Items) != 1 {
		t.Errorf("expected items on first order, got %+v", orders[0].Items)
	}
	if len(orders[1].Items) != 0 {
		t.Errorf("expected no items on second order, got %+v", orders[1].Items)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	updated := false
	orderRepo := &mockOrderRepository{
		FindByIDFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			status := domain.OrderStatusPending
			if updated {
				status = domain.OrderStatusPreparing
			}
			return &domain.Order{ID: id, Status: status}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, id string, status string) error {
			updated = true
			return nil
		},
	}
	itemRepo := &mockOrderItemRepository{
		FindByOrderIDFunc: func(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
			return nil, nil
		},
	}
	publisher := &mockPublisher{err: context.DeadlineExceeded}
	svc := newTestService(nil, orderRepo, itemRepo, &mockMenuReader{}, publisher)

	_, err := svc.UpdateStatus(context.Background(), "order-1", domain.OrderStatusPreparing)
	if err != nil {
		t.Fatalf("expected mutation to succeed despite publish failure, got %v", err)
	}
}
