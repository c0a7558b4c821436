package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusAuthorized OrderStatus = "authorized"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// ValidStatus reports whether s belongs to the order status vocabulary.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusAuthorized, OrderStatusPaid,
		OrderStatusFailed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// OrderItem is a line in an order. The wire keys match what the checkout
// sends: {"id": "...", "qty": N}.
type OrderItem struct {
	ProductID string `json:"id"`
	Quantity  int    `json:"qty"`
}

type Order struct {
	ID           string      `json:"id"`
	Items        []OrderItem `json:"items"`
	Amount       int64       `json:"amount"`
	CurrencyCode string      `json:"currency_code"`
	Status       OrderStatus `json:"status"`
	Provider     string      `json:"provider,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type CreateOrderRequest struct {
	Items        []OrderItem `json:"items" binding:"required"`
	Amount       int64       `json:"amount" binding:"required,gt=0"`
	CurrencyCode string      `json:"currency" binding:"required"`
}

// UpdateOrderRequest carries the only two mutable order fields.
type UpdateOrderRequest struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

type OrderEvent struct {
	OrderID      string      `json:"order_id"`
	Status       OrderStatus `json:"status"`
	Provider     string      `json:"provider,omitempty"`
	Amount       int64       `json:"amount"`
	CurrencyCode string      `json:"currency_code"`
	EventType    string      `json:"event_type"` // order_created, order_status_changed
}
