package printer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/receipt"
)

// Result reports the outcome of one dispatch. Kitchen and cash attempts are
// independent: one failing never prevents the other. Errors collects
// human-readable failure messages; empty means full success.
type Result struct {
	KitchenRequested bool
	KitchenPrinted   bool
	CashRequested    bool
	CashPrinted      bool
	Errors           []string
}

// Requested reports whether any document was asked for.
func (r Result) Requested() bool {
	return r.KitchenRequested || r.CashRequested
}

// Success reports whether every requested document printed. A document that
// was not requested does not count toward success.
func (r Result) Success() bool {
	if r.KitchenRequested && !r.KitchenPrinted {
		return false
	}
	if r.CashRequested && !r.CashPrinted {
		return false
	}
	return true
}

type Dispatcher struct {
	client Client
	logger *zap.Logger
}

func NewDispatcher(client Client, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, logger: logger}
}

// Active reports whether the underlying print-service connection is live.
func (d *Dispatcher) Active() bool {
	return d.client.Active()
}

// PrintOrder formats and sends the kitchen ticket (when printKitchen) and the
// cash receipt (unless skipCash) for one order. Failures are reported in the
// result, never raised.
func (d *Dispatcher) PrintOrder(ctx context.Context, order *domain.Order, settings *domain.RestaurantSettings, printKitchen, skipCash bool) Result {
	res := Result{
		KitchenRequested: printKitchen,
		CashRequested:    !skipCash,
	}

	if res.KitchenRequested {
		segs := receipt.KitchenTicket(order, settings, order.SourceName)
		if err := d.printDocument(ctx, settings.KitchenPrinter, segs); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("kitchen ticket: %v", err))
		} else {
			res.KitchenPrinted = true
		}
	}

	if res.CashRequested {
		segs := receipt.CashReceipt(order, settings, order.SourceName)
		if err := d.printDocument(ctx, settings.CashPrinter, segs); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("cash receipt: %v", err))
		} else {
			res.CashPrinted = true
		}
	}

	d.logger.Info("dispatch finished",
		zap.String("orderId", order.ID),
		zap.Bool("kitchenRequested", res.KitchenRequested),
		zap.Bool("kitchenPrinted", res.KitchenPrinted),
		zap.Bool("cashRequested", res.CashRequested),
		zap.Bool("cashPrinted", res.CashPrinted),
		zap.Strings("errors", res.Errors))

	return res
}

func (d *Dispatcher) printDocument(ctx context.Context, printerName string, segments []receipt.Segment) error {
	if printerName == "" {
		return fmt.Errorf("no printer configured")
	}
	if !d.client.Active() {
		return fmt.Errorf("print service connection is not active")
	}

	found, err := d.client.Find(ctx, printerName)
	if err != nil {
		return err
	}

	return d.client.Print(ctx, found, segments)
}

// TestPrint sends a fixed synthetic order through the production formatting
// and dispatch path, to validate a printer name end to end.
func (d *Dispatcher) TestPrint(ctx context.Context, printerName string, settings *domain.RestaurantSettings) Result {
	order := syntheticOrder()

	test := *settings
	test.KitchenPrinter = printerName
	test.CashPrinter = printerName

	return d.PrintOrder(ctx, order, &test, true, false)
}

func syntheticOrder() *domain.Order {
	table := 1
	customer := "Test Print"
	now := time.Now().UTC()

	total := decimal.NewFromInt(110)
	subtotal, tax := domain.SplitInclusive(total, decimal.NewFromInt(10))

	return &domain.Order{
		ID:           uuid.NewString(),
		TableNumber:  &table,
		CustomerName: &customer,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        total,
		Status:       domain.OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Items: []domain.OrderItem{
			{Name: "Sample Item", UnitPrice: decimal.NewFromInt(55), Quantity: 2},
		},
	}
}
