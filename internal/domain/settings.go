package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestaurantSettings is a singleton record (row id 1). Nearly every component
// reads it; it is mutated only through the settings update operation.
type RestaurantSettings struct {
	ID             int64
	Name           string
	Address        string
	LogoURL        *string
	CurrencySymbol string
	TaxPercent     decimal.Decimal
	BusinessHours  string
	TableCount     int
	KitchenEnabled bool
	KitchenPrinter string
	CashPrinter    string
	UpdatedAt      time.Time
}

// TableStatus is the derived state of a dining table.
type TableStatus string

const (
	TableFree      TableStatus = "free"
	TableOrdered   TableStatus = "ordered"
	TablePreparing TableStatus = "preparing"
	TableReady     TableStatus = "ready"
)
