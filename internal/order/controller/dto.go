package controller

import (
	"time"

	"comanda/internal/domain"
)

type ItemRequest struct {
	MenuItemID int64   `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}

type CreateOrderRequest struct {
	TableNumber  *int          `json:"tableNumber,omitempty"`
	SourceID     *int64        `json:"sourceId,omitempty"`
	CustomerName *string       `json:"customerName,omitempty"`
	Items        []ItemRequest `json:"items"`
}

type AddItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type PaymentRequest struct {
	Method string `json:"method"`
}

type PrintRequest struct {
	Kitchen bool `json:"kitchen"`
}

type PrintResponse struct {
	KitchenPrinted bool     `json:"kitchenPrinted"`
	CashPrinted    bool     `json:"cashPrinted"`
	Errors         []string `json:"errors"`
}

type OrderItemDTO struct {
	ID         int64   `json:"id"`
	MenuItemID *int64  `json:"menuItemId"`
	Name       string  `json:"name"`
	UnitPrice  string  `json:"unitPrice"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}

type OrderDTO struct {
	ID            string         `json:"id"`
	TableNumber   *int           `json:"tableNumber,omitempty"`
	SourceID      *int64         `json:"sourceId,omitempty"`
	SourceName    string         `json:"sourceName,omitempty"`
	CustomerName  *string        `json:"customerName,omitempty"`
	Subtotal      string         `json:"subtotal"`
	Tax           string         `json:"tax"`
	Total         string         `json:"total"`
	Status        string         `json:"status"`
	Paid          bool           `json:"paid"`
	PaymentMethod *string        `json:"paymentMethod,omitempty"`
	PrintedAt     *time.Time     `json:"printedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Items         []OrderItemDTO `json:"items"`
}

type TableDTO struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func toOrderDTO(order *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemDTO{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
	}

	return OrderDTO{
		ID:            order.ID,
		TableNumber:   order.TableNumber,
		SourceID:      order.SourceID,
		SourceName:    order.SourceName,
		CustomerName:  order.CustomerName,
		Subtotal:      order.Subtotal.StringFixed(2),
		Tax:           order.Tax.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		Status:        order.Status,
		Paid:          order.Paid,
		PaymentMethod: order.PaymentMethod,
		PrintedAt:     order.PrintedAt,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		Items:         items,
	}
}
