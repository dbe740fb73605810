package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusSentToDelivery OrderStatus = "sent_to_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusSentToDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type OrderEntity struct {
	ID           string `json:"id"`
	OrderNumber  string `json:"order_number"`
	CustomerID   string `json:"customer_id"`
	RestaurantID string `json:"restaurant_id"`
	// RestaurantOwnerID is resolved from the restaurant on read and never serialized.
	RestaurantOwnerID string `json:"-"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`

	PaymentMethod       PaymentMethod `json:"payment_method"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	DeliveryAddress     Address       `json:"delivery_address"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`

	Status              OrderStatus `json:"status"`
	EstimatedDeliveryAt time.Time   `json:"estimated_delivery_at"`
	DeliveredAt         *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	Lines []OrderLine `json:"lines,omitempty"`
}

// OrderLine holds the unit price captured when the order was placed.
type OrderLine struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	MenuItemID     string          `json:"menu_item_id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	SpecialRequest string          `json:"special_request,omitempty"`
}

// ItemCount is the total quantity across all lines.
func (o *OrderEntity) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

type StatusChange struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"order_id"`
	FromStatus OrderStatus `json:"from_status,omitempty"`
	ToStatus   OrderStatus `json:"to_status"`
	ChangedBy  string      `json:"changed_by"`
	CreatedAt  time.Time   `json:"created_at"`
}

type OrderFilter struct {
	CustomerID string
	OwnerID    string
	Status     OrderStatus
	Page       int
	PageSize   int
}

func (f OrderFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
