package service

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"food-order-service/internal/access"
	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"
	"food-order-service/internal/notify"
	"food-order-service/internal/pricing"
	"food-order-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "order-service").Logger()

// maxCreateAttempts bounds retries after an order number collision.
const maxCreateAttempts = 2

type LineRequest struct {
	MenuItemID     string `json:"menu_item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	SpecialRequest string `json:"special_request,omitempty" validate:"max=500"`
}

type CreateOrderRequest struct {
	RestaurantID        string               `json:"restaurant_id" validate:"required"`
	Lines               []LineRequest        `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress     entity.Address       `json:"delivery_address"`
	PaymentMethod       entity.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card upi wallet"`
	SpecialInstructions string               `json:"special_instructions,omitempty" validate:"max=1000"`
}

type ListRequest struct {
	Status   entity.OrderStatus
	Page     int
	PageSize int
}

type ListResult struct {
	Orders   []entity.OrderEntity `json:"orders"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type Options struct {
	PrepBuffer      time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

type OrderService struct {
	store      repository.Store
	pricing    *pricing.Engine
	publisher  notify.Publisher
	opts       Options
	now        func() time.Time
	newID      func() string
	nextNumber func(time.Time) string
}

func NewOrderService(store repository.Store, engine *pricing.Engine, publisher notify.Publisher, opts Options) *OrderService {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &OrderService{
		store:      store,
		pricing:    engine,
		publisher:  publisher,
		opts:       opts,
		now:        time.Now,
		newID:      uuid.NewString,
		nextNumber: NewOrderNumber,
	}
}

// NewOrderNumber combines the creation second with a random suffix. It is
// practically unique; collisions surface as a conflict on insert.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%06X", now.UTC().Format("20060102-150405"), rand.Uint32()&0xFFFFFF)
}

func (o *OrderService) CreateOrder(ctx context.Context, caller entity.Caller, req CreateOrderRequest) (*entity.OrderEntity, error) {
	if err := access.Check(caller, access.Customers, nil); err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	var order *entity.OrderEntity
	var err error
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		order, err = o.createOnce(ctx, caller, req)
		if !apperr.Is(err, apperr.Conflict) {
			break
		}
		logger.Warn().Int("attempt", attempt).Msg("order number collision")
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			logger.Error().Err(err).Msgf("Error creating order for restaurant %s", req.RestaurantID)
		}
		return nil, err
	}

	logger.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("restaurant_id", order.RestaurantID).
		Str("final_amount", order.FinalAmount.StringFixed(pricing.Scale)).
		Msg("order created")

	o.publish(ctx, notify.RestaurantTopic(order.RestaurantID), notify.Event{
		Type: notify.EventNewOrder,
		Payload: notify.NewOrderPayload{
			OrderID:      order.ID,
			OrderNumber:  order.OrderNumber,
			CustomerName: displayName(caller),
			FinalAmount:  order.FinalAmount,
			ItemCount:    order.ItemCount(),
		},
		OccurredAt: order.CreatedAt,
	})
	return order, nil
}

// createOnce runs validation against the catalog and all writes in one transaction.
func (o *OrderService) createOnce(ctx context.Context, caller entity.Caller, req CreateOrderRequest) (*entity.OrderEntity, error) {
	now := o.now().UTC()
	order := &entity.OrderEntity{
		ID:                  o.newID(),
		OrderNumber:         o.nextNumber(now),
		CustomerID:          caller.ID,
		RestaurantID:        req.RestaurantID,
		PaymentMethod:       req.PaymentMethod,
		PaymentStatus:       entity.PaymentPending,
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: strings.TrimSpace(req.SpecialInstructions),
		Status:              entity.StatusPending,
		EstimatedDeliveryAt: now.Add(o.opts.PrepBuffer),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := o.store.WithTx(ctx, func(tx repository.Tx) error {
		restaurant, err := tx.Restaurant(ctx, req.RestaurantID)
		if err != nil {
			return err
		}
		if !restaurant.Active {
			return apperr.New(apperr.NotFound, "restaurant %s not found", req.RestaurantID)
		}
		order.RestaurantOwnerID = restaurant.OwnerID

		priced := make([]entity.PricedLine, 0, len(req.Lines))
		deltas := make(map[string]int)
		for _, l := range req.Lines {
			item, err := tx.RestaurantMenuItem(ctx, restaurant.ID, l.MenuItemID)
			if err != nil {
				return err
			}
			if !item.Available {
				return apperr.New(apperr.Unavailable, "menu item %s (%s) is not available", item.Name, item.ID)
			}
			order.Lines = append(order.Lines, entity.OrderLine{
				ID:             o.newID(),
				OrderID:        order.ID,
				MenuItemID:     item.ID,
				Name:           item.Name,
				Quantity:       l.Quantity,
				UnitPrice:      item.Price,
				LineTotal:      pricing.LineTotal(item.Price, l.Quantity),
				SpecialRequest: strings.TrimSpace(l.SpecialRequest),
			})
			priced = append(priced, entity.PricedLine{UnitPrice: item.Price, Quantity: l.Quantity})
			deltas[item.ID] += l.Quantity
		}

		totals := o.pricing.Compute(restaurant.DeliveryFee, priced)
		order.Subtotal = totals.Subtotal
		order.DeliveryFee = totals.DeliveryFee
		order.TaxAmount = totals.TaxAmount
		order.Discount = totals.Discount
		order.FinalAmount = totals.FinalAmount

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertOrderLines(ctx, order.ID, order.Lines); err != nil {
			return err
		}

		// fixed order keeps concurrent creations from deadlocking on item rows
		itemIDs := make([]string, 0, len(deltas))
		for id := range deltas {
			itemIDs = append(itemIDs, id)
		}
		sort.Strings(itemIDs)
		for _, id := range itemIDs {
			if err := tx.IncrementMenuItemOrders(ctx, id, deltas[id]); err != nil {
				return err
			}
		}

		cleared, err := tx.ClearCart(ctx, caller.ID, restaurant.ID)
		if err != nil {
			return err
		}
		logger.Debug().Str("order_id", order.ID).Int64("cart_entries", cleared).Msg("cart cleared")

		return tx.AppendStatusChange(ctx, entity.StatusChange{
			ID:        o.newID(),
			OrderID:   order.ID,
			ToStatus:  entity.StatusPending,
			ChangedBy: caller.ID,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (o *OrderService) TransitionStatus(ctx context.Context, caller entity.Caller, orderID string, target entity.OrderStatus) (*entity.OrderEntity, error) {
	if err := access.Check(caller, access.Operators, nil); err != nil {
		return nil, err
	}
	if !target.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown status %q", target)
	}

	var order *entity.OrderEntity
	var from entity.OrderStatus
	err := o.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := access.Check(caller, access.Operators, order); err != nil {
			return err
		}

		from = order.Status
		if !CanTransition(from, target) {
			return transitionError(from, target)
		}

		now := o.now().UTC()
		order.Status = target
		order.UpdatedAt = now
		if target == entity.StatusDelivered {
			order.DeliveredAt = &now
			if order.PaymentMethod == entity.PaymentCash && order.PaymentStatus == entity.PaymentPending {
				order.PaymentStatus = entity.PaymentPaid
			}
		}

		if err := tx.UpdateOrderStatus(ctx, order); err != nil {
			return err
		}
		return tx.AppendStatusChange(ctx, entity.StatusChange{
			ID:         o.newID(),
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   target,
			ChangedBy:  caller.ID,
			CreatedAt:  now,
		})
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			logger.Error().Err(err).Msgf("Error updating status of order %s", orderID)
		}
		return nil, err
	}

	logger.Info().
		Str("order_id", order.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor", caller.ID).
		Msg("order status changed")

	o.publish(ctx, notify.CustomerTopic(order.CustomerID), notify.Event{
		Type: notify.EventStatusChanged,
		Payload: notify.StatusChangedPayload{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
		},
		OccurredAt: order.UpdatedAt,
	})
	return order, nil
}

func (o *OrderService) ListOrders(ctx context.Context, caller entity.Caller, req ListRequest) (*ListResult, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, apperr.New(apperr.InvalidInput, "unknown status %q", req.Status)
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = o.opts.DefaultPageSize
	}
	if size > o.opts.MaxPageSize {
		size = o.opts.MaxPageSize
	}

	filter, err := access.Scope(caller, entity.OrderFilter{Status: req.Status, Page: page, PageSize: size})
	if err != nil {
		return nil, err
	}

	orders, total, err := o.store.ListOrders(ctx, filter)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return nil, err
	}
	return &ListResult{Orders: orders, Total: total, Page: page, PageSize: size}, nil
}

// GetOrder returns the order with its lines. An order the caller may not see
// is reported as Unauthorized, not NotFound.
func (o *OrderService) GetOrder(ctx context.Context, caller entity.Caller, orderID string) (*entity.OrderEntity, error) {
	if err := access.Check(caller, access.Anyone, nil); err != nil {
		return nil, err
	}
	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, access.Anyone, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (o *OrderService) OrderHistory(ctx context.Context, caller entity.Caller, orderID string) ([]entity.StatusChange, error) {
	if _, err := o.GetOrder(ctx, caller, orderID); err != nil {
		return nil, err
	}
	return o.store.OrderHistory(ctx, orderID)
}

// publish hands the event to the dispatcher. Failures never reach the caller.
func (o *OrderService) publish(ctx context.Context, topic string, event notify.Event) {
	if err := o.publisher.Publish(ctx, topic, event); err != nil {
		logger.Warn().Err(err).Str("topic", topic).Str("event", event.Type).Msg("notification failed")
	}
}

func validateCreate(req CreateOrderRequest) error {
	if strings.TrimSpace(req.RestaurantID) == "" {
		return apperr.New(apperr.InvalidInput, "restaurant_id is required")
	}
	if len(req.Lines) == 0 {
		return apperr.New(apperr.InvalidInput, "order must contain at least one item")
	}
	for i, l := range req.Lines {
		if strings.TrimSpace(l.MenuItemID) == "" {
			return apperr.New(apperr.InvalidInput, "items[%d].menu_item_id is required", i)
		}
		if l.Quantity <= 0 {
			return apperr.New(apperr.InvalidInput, "items[%d].quantity must be positive", i)
		}
	}
	if field := req.DeliveryAddress.Missing(); field != "" {
		return apperr.New(apperr.InvalidInput, "delivery_address.%s is required", field)
	}
	if !req.PaymentMethod.Valid() {
		return apperr.New(apperr.InvalidInput, "unknown payment method %q", req.PaymentMethod)
	}
	return nil
}

func transitionError(from, to entity.OrderStatus) error {
	if IsTerminal(from) {
		return apperr.New(apperr.InvalidTransition, "order is %s and can no longer change status", from)
	}
	next := NextStatuses(from)
	allowed := make([]string, len(next))
	for i, s := range next {
		allowed[i] = string(s)
	}
	return apperr.New(apperr.InvalidTransition, "cannot move order from %s to %s (allowed: %s)",
		from, to, strings.Join(allowed, ", "))
}

func displayName(c entity.Caller) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
