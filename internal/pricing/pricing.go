// Package pricing computes order totals on fixed-point decimals.
package pricing

import (
	"food-order-service/internal/entity"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for currency amounts.
const Scale = entity.MoneyScale

type Engine struct {
	taxRate decimal.Decimal
}

func NewEngine(taxRate decimal.Decimal) *Engine {
	return &Engine{taxRate: taxRate}
}

func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }

// LineTotal is quantity times unit price, rounded to currency scale.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(Scale)
}

// Compute returns the breakdown for lines delivered at deliveryFee.
// Discount is always zero.
func (e *Engine) Compute(deliveryFee decimal.Decimal, lines []entity.PricedLine) entity.Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	subtotal = subtotal.Round(Scale)

	fee := deliveryFee.Round(Scale)
	tax := subtotal.Mul(e.taxRate).Round(Scale)
	discount := decimal.Zero.Round(Scale)

	return entity.Pricing{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		TaxAmount:   tax,
		Discount:    discount,
		FinalAmount: subtotal.Add(fee).Add(tax).Sub(discount).Round(Scale),
	}
}
