package entity

import (
	"strings"
	"time"
)

// OrderStatus buyurtma holati
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPacking   OrderStatus = "packing"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses is the display order used by admin keyboards.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPacking,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

// ParseOrderStatus accepts the canonical lowercase names.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPacking, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Rank is the position on the forward path. Cancelled has no rank (-1).
func (s OrderStatus) Rank() int {
	switch s {
	case OrderPending:
		return 0
	case OrderConfirmed:
		return 1
	case OrderPacking:
		return 2
	case OrderShipped:
		return 3
	case OrderDelivered:
		return 4
	}
	return -1
}

// BeforeShipping covers pending, confirmed and packing.
func (s OrderStatus) BeforeShipping() bool {
	r := s.Rank()
	return r >= 0 && r < OrderShipped.Rank()
}

// Label ruscha nom
func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Ожидает"
	case OrderConfirmed:
		return "Подтверждён"
	case OrderPacking:
		return "Собирается"
	case OrderShipped:
		return "Отправлен"
	case OrderDelivered:
		return "Доставлен"
	case OrderCancelled:
		return "Отменён"
	}
	return string(s)
}

func (s OrderStatus) Emoji() string {
	switch s {
	case OrderPending:
		return "🟡"
	case OrderConfirmed:
		return "🔵"
	case OrderPacking:
		return "🟣"
	case OrderShipped:
		return "🟠"
	case OrderDelivered:
		return "🟢"
	case OrderCancelled:
		return "🔴"
	}
	return "⚪"
}

// OrderItem buyurtma qatori. Price is the unit price in whole rubles.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	PartNumber string `json:"part_number"`
	Price      int64  `json:"price"`
	Quantity   int    `json:"quantity"`
}

func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Customer holds the contact snapshot captured at checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Address string `json:"address"`
}

// Order buyurtma
type Order struct {
	ID              string      `json:"id"`
	UserID          int64       `json:"user_id,omitempty"`
	Status          OrderStatus `json:"status"`
	Customer        Customer    `json:"customer"`
	Comment         string      `json:"comment,omitempty"`
	Total           int64       `json:"total"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	TrackingCarrier string      `json:"tracking_carrier,omitempty"`
	TelegramID      int64       `json:"telegram_id,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ItemsTotal sums item subtotals.
func (o Order) ItemsTotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Subtotal()
	}
	return sum
}

// Owner returns the Telegram identity that may act on the order as a customer.
func (o Order) Owner() int64 {
	if o.TelegramID != 0 {
		return o.TelegramID
	}
	return o.UserID
}

// OrderStats feeds the admin panel header.
type OrderStats struct {
	Orders        int `json:"orders"`
	PendingOrders int `json:"pending_orders"`
	Users         int `json:"users"`
	Garages       int `json:"garages"`
}
