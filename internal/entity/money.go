package entity

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for currency amounts.
const MoneyScale = 2

// FormatMoney renders d with exactly MoneyScale fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

// The MarshalJSON methods below render amounts as fixed two-digit strings
// ("25.00", not "25"). Decoding relies on decimal's own UnmarshalJSON.

func (o OrderEntity) MarshalJSON() ([]byte, error) {
	type plain OrderEntity
	return json.Marshal(struct {
		plain
		Subtotal    string `json:"subtotal"`
		DeliveryFee string `json:"delivery_fee"`
		TaxAmount   string `json:"tax_amount"`
		Discount    string `json:"discount"`
		FinalAmount string `json:"final_amount"`
	}{
		plain:       plain(o),
		Subtotal:    FormatMoney(o.Subtotal),
		DeliveryFee: FormatMoney(o.DeliveryFee),
		TaxAmount:   FormatMoney(o.TaxAmount),
		Discount:    FormatMoney(o.Discount),
		FinalAmount: FormatMoney(o.FinalAmount),
	})
}

func (l OrderLine) MarshalJSON() ([]byte, error) {
	type plain OrderLine
	return json.Marshal(struct {
		plain
		UnitPrice string `json:"unit_price"`
		LineTotal string `json:"line_total"`
	}{
		plain:     plain(l),
		UnitPrice: FormatMoney(l.UnitPrice),
		LineTotal: FormatMoney(l.LineTotal),
	})
}

func (e CartEntry) MarshalJSON() ([]byte, error) {
	type plain CartEntry
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain: plain(e), Price: FormatMoney(e.Price)})
}

func (m MenuItem) MarshalJSON() ([]byte, error) {
	type plain MenuItem
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain: plain(m), Price: FormatMoney(m.Price)})
}

func (r Restaurant) MarshalJSON() ([]byte, error) {
	type plain Restaurant
	return json.Marshal(struct {
		plain
		DeliveryFee string `json:"delivery_fee"`
	}{plain: plain(r), DeliveryFee: FormatMoney(r.DeliveryFee)})
}
