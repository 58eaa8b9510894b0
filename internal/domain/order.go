package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           string
	TableNumber  *int
	SourceID     *int64
	// SourceName is hydrated from the order_sources table when SourceID is
	// set; empty otherwise.
	SourceName    string
	CustomerName  *string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Status        string
	Paid          bool
	PaymentMethod *string
	PrintedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []OrderItem
}

type OrderItem struct {
	ID         int64
	OrderID    string
	MenuItemID *int64
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	Notes      *string
}

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"
)

var statusRank = map[string]int{
	OrderStatusPending:   0,
	OrderStatusPreparing: 1,
	OrderStatusReady:     2,
	OrderStatusServed:    3,
}

// IsValidStatus reports whether s is one of the known order statuses.
func IsValidStatus(s string) bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order may move from status `from` to
// status `to`. Transitions are monotonic forward; cancellation is allowed
// from any non-terminal status. Resetting to pending on item additions is a
// service-level action, not a transition.
func CanTransition(from, to string) bool {
	if from == OrderStatusCancelled || from == OrderStatusServed {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// IsActive reports whether the order still occupies a table or source slot:
// unpaid and neither served nor cancelled.
func (o *Order) IsActive() bool {
	return !o.Paid && o.Status != OrderStatusServed && o.Status != OrderStatusCancelled
}

// IsDineIn reports whether the order belongs to a table rather than an
// external order source. By convention an order carries one or the other.
func (o *Order) IsDineIn() bool {
	return o.TableNumber != nil && o.SourceID == nil
}
