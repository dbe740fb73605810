package entity

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderJSONUsesFixedMoney(t *testing.T) {
	order := OrderEntity{
		ID:          "o1",
		Subtotal:    decimal.RequireFromString("25"),
		DeliveryFee: decimal.RequireFromString("2.5"),
		TaxAmount:   decimal.RequireFromString("1.25"),
		FinalAmount: decimal.RequireFromString("28.75"),
		Status:      StatusPending,
		Lines: []OrderLine{
			{ID: "l1", Quantity: 2, UnitPrice: decimal.RequireFromString("10"), LineTotal: decimal.RequireFromString("20")},
		},
	}

	data, err := json.Marshal(&order)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"subtotal":     "25.00",
		"delivery_fee": "2.50",
		"tax_amount":   "1.25",
		"discount":     "0.00",
		"final_amount": "28.75",
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("%s: expected %q, got %v", k, v, out[k])
		}
	}
	if out["id"] != "o1" || out["status"] != "pending" {
		t.Errorf("plain fields lost: %s", data)
	}

	lines, _ := out["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %s", data)
	}
	line := lines[0].(map[string]any)
	if line["unit_price"] != "10.00" || line["line_total"] != "20.00" {
		t.Errorf("unexpected line amounts %v", line)
	}

	var back OrderEntity
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.FinalAmount.Equal(order.FinalAmount) || !back.Lines[0].UnitPrice.Equal(order.Lines[0].UnitPrice) {
		t.Errorf("amounts changed on decode: %+v", back)
	}
}

func TestCartEntryJSONUsesFixedMoney(t *testing.T) {
	data, err := json.Marshal(CartEntry{ID: "c1", Price: decimal.RequireFromString("9.5"), Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["price"] != "9.50" || out["id"] != "c1" {
		t.Errorf("unexpected cart entry json %s", data)
	}
}
