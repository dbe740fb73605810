package entity

import "github.com/shopspring/decimal"

type Pricing struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Discount    decimal.Decimal `json:"discount"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// PricedLine is one line item input to the pricing engine.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}
