package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	CategoryID  *int64
	Description *string
	Available   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MenuCategory struct {
	ID        int64
	Name      string
	SortOrder int
	CreatedAt time.Time
}

// OrderSource is a non-table order channel: a delivery platform or takeaway
// counter. Orders reference a source instead of a table number.
type OrderSource struct {
	ID        int64
	Name      string
	Icon      string
	Active    bool
	SortOrder int
	CreatedAt time.Time
}
