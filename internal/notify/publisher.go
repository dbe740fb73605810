// Package notify fans order lifecycle events out to customers and restaurants.
// Delivery is best effort and at most once.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"food-order-service/internal/entity"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notify").Logger()

const (
	EventNewOrder      = "new_order"
	EventStatusChanged = "order_status_changed"
)

// Event is the envelope every transport carries as JSON.
type Event struct {
	Type       string    `json:"event"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

type NewOrderPayload struct {
	OrderID      string          `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	FinalAmount  decimal.Decimal `json:"final_amount"`
	ItemCount    int             `json:"item_count"`
}

func (p NewOrderPayload) MarshalJSON() ([]byte, error) {
	type plain NewOrderPayload
	return json.Marshal(struct {
		plain
		FinalAmount string `json:"final_amount"`
	}{plain: plain(p), FinalAmount: entity.FormatMoney(p.FinalAmount)})
}

type StatusChangedPayload struct {
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      entity.OrderStatus `json:"status"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

func CustomerTopic(customerID string) string { return "customer:" + customerID }

func RestaurantTopic(restaurantID string) string { return "restaurant:" + restaurantID }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
