// Package receipt turns an order snapshot plus restaurant settings into
// printable ESC/POS payloads. Formatting is pure: the same order and settings
// always produce the same bytes (documents embed the order's creation time,
// not the formatting time).
package receipt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"comanda/internal/domain"
)

// Kitchen ticket columns: item name + right-aligned quantity.
const (
	kitchenNameWidth = 34
	kitchenQtyWidth  = 8
)

// Cash receipt columns: serial / name / qty / unit price / line amount.
const (
	cashSerialWidth = 3
	cashNameWidth   = 17
	cashQtyWidth    = 4
	cashPriceWidth  = 8
	cashAmountWidth = 10
)

const timeLayout = "02/01/2006 15:04"

// OrderRef is the short identifier printed on both documents: the first 8
// characters of the order id, uppercased.
func OrderRef(orderID string) string {
	ref := orderID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return strings.ToUpper(ref)
}

func locationLine(order *domain.Order, sourceName string) string {
	if order.TableNumber != nil {
		return "Table: " + strconv.Itoa(*order.TableNumber)
	}
	if sourceName != "" {
		return "Source: " + sourceName
	}
	return "Takeaway"
}

// KitchenTicket renders the kitchen order ticket: item names and quantities,
// no prices, no logo.
func KitchenTicket(order *domain.Order, settings *domain.RestaurantSettings, sourceName string) []Segment {
	var b Builder

	b.Init()
	b.AlignCenter().BoldOn().SizeDouble()
	b.Line(settings.Name)
	b.SizeNormal()
	b.Line("KITCHEN ORDER")
	b.BoldOff().AlignLeft()
	b.Rule()

	b.Line("Order: #" + OrderRef(order.ID))
	b.Line(locationLine(order, sourceName))
	if order.CustomerName != nil && *order.CustomerName != "" {
		b.Line("Customer: " + *order.CustomerName)
	}
	b.Line(order.CreatedAt.Format(timeLayout))
	b.Rule()

	b.Line(padRight("Item", kitchenNameWidth) + padLeft("Qty", kitchenQtyWidth))
	for _, item := range order.Items {
		b.Line(padRight(item.Name, kitchenNameWidth) + padLeft(strconv.Itoa(item.Quantity), kitchenQtyWidth))
		if item.Notes != nil && *item.Notes != "" {
			b.Line("  " + *item.Notes)
		}
	}
	b.Rule()

	b.Feed(3)
	b.Cut()

	return b.Segments()
}

// CashReceipt renders the customer bill: logo (when configured), address,
// itemised five-column table, totals block and payment method.
func CashReceipt(order *domain.Order, settings *domain.RestaurantSettings, sourceName string) []Segment {
	var b Builder

	b.Init()
	if settings.LogoURL != nil && *settings.LogoURL != "" {
		b.AlignCenter()
		b.Image(*settings.LogoURL)
	}

	b.AlignCenter().BoldOn().SizeDouble()
	b.Line(settings.Name)
	b.SizeNormal().BoldOff()
	for _, line := range strings.Split(settings.Address, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			b.Line(trimmed)
		}
	}
	b.AlignLeft()
	b.Rule()

	b.Line("Bill: #" + OrderRef(order.ID))
	b.Line(locationLine(order, sourceName))
	if order.CustomerName != nil && *order.CustomerName != "" {
		b.Line("Customer: " + *order.CustomerName)
	}
	b.Line(order.CreatedAt.Format(timeLayout))
	b.Rule()

	b.Line(padRight("#", cashSerialWidth) +
		padRight("Item", cashNameWidth) +
		padLeft("Qty", cashQtyWidth) +
		padLeft("Price", cashPriceWidth) +
		padLeft("Amount", cashAmountWidth))
	for i, item := range order.Items {
		amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		b.Line(padRight(strconv.Itoa(i+1), cashSerialWidth) +
			padRight(item.Name, cashNameWidth) +
			padLeft(strconv.Itoa(item.Quantity), cashQtyWidth) +
			padLeft(item.UnitPrice.StringFixed(2), cashPriceWidth) +
			padLeft(amount.StringFixed(2), cashAmountWidth))
	}
	b.Rule()

	cur := settings.CurrencySymbol
	b.Line(totalLine("Subtotal:", cur+order.Subtotal.StringFixed(2)))
	taxLabel := fmt.Sprintf("Tax (%s%%):", settings.TaxPercent.String())
	b.Line(totalLine(taxLabel, cur+order.Tax.StringFixed(2)))
	b.BoldOn().SizeDouble()
	b.Line(totalLine("TOTAL:", cur+order.Total.StringFixed(2)))
	b.SizeNormal().BoldOff()
	if order.Paid && order.PaymentMethod != nil {
		b.Line(totalLine("Paid by:", *order.PaymentMethod))
	}
	b.Rule()

	b.AlignCenter()
	b.Line("Thank you, visit again!")
	b.AlignLeft()

	b.Feed(3)
	b.Cut()

	return b.Segments()
}

// totalLine right-aligns a label/value pair across the full line width.
func totalLine(label, value string) string {
	return padLeft(label+" "+value, LineWidth)
}
