package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Name        string          `json:"name"`
	Active      bool            `json:"active"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
	TotalOrders  int             `json:"total_orders"`
}

type CartEntry struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	MenuItemID     string          `json:"menu_item_id"`
	RestaurantID   string          `json:"restaurant_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	SpecialRequest string          `json:"special_request,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Address struct {
	Line1      string   `json:"line1" validate:"required,max=255"`
	Line2      string   `json:"line2,omitempty" validate:"max=255"`
	City       string   `json:"city" validate:"required,max=100"`
	State      string   `json:"state,omitempty" validate:"max=100"`
	PostalCode string   `json:"postal_code" validate:"required,max=20"`
	Phone      string   `json:"phone,omitempty" validate:"max=32"`
	Latitude   *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// Missing returns the name of the first required field that is blank.
func (a Address) Missing() string {
	switch {
	case strings.TrimSpace(a.Line1) == "":
		return "line1"
	case strings.TrimSpace(a.City) == "":
		return "city"
	case strings.TrimSpace(a.PostalCode) == "":
		return "postal_code"
	}
	return ""
}
