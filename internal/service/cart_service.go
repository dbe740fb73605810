package service

import (
	"context"
	"strings"
	"time"

	"food-order-service/internal/access"
	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"
	"food-order-service/internal/repository"

	"github.com/google/uuid"
)

type CartItemRequest struct {
	MenuItemID     string `json:"menu_item_id" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gt=0,lte=99"`
	SpecialRequest string `json:"special_request,omitempty" validate:"max=500"`
}

type CartService struct {
	store repository.Store
	now   func() time.Time
	newID func() string
}

func NewCartService(store repository.Store) *CartService {
	return &CartService{store: store, now: time.Now, newID: uuid.NewString}
}

// PutItem sets the quantity of an item in the caller's cart.
func (s *CartService) PutItem(ctx context.Context, caller entity.Caller, req CartItemRequest) (*entity.CartEntry, error) {
	if err := access.Check(caller, access.Customers, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.MenuItemID) == "" {
		return nil, apperr.New(apperr.InvalidInput, "menu_item_id is required")
	}
	if req.Quantity <= 0 {
		return nil, apperr.New(apperr.InvalidInput, "quantity must be positive")
	}

	item, err := s.store.MenuItem(ctx, req.MenuItemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, apperr.New(apperr.Unavailable, "menu item %s (%s) is not available", item.Name, item.ID)
	}

	entry := &entity.CartEntry{
		ID:             s.newID(),
		CustomerID:     caller.ID,
		MenuItemID:     item.ID,
		RestaurantID:   item.RestaurantID,
		Name:           item.Name,
		Price:          item.Price,
		Quantity:       req.Quantity,
		SpecialRequest: strings.TrimSpace(req.SpecialRequest),
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.store.UpsertCartEntry(ctx, entry); err != nil {
		logger.Error().Err(err).Msgf("Error saving cart entry for item %s", item.ID)
		return nil, err
	}
	return entry, nil
}

func (s *CartService) List(ctx context.Context, caller entity.Caller) ([]entity.CartEntry, error) {
	if err := access.Check(caller, access.Customers, nil); err != nil {
		return nil, err
	}
	return s.store.ListCart(ctx, caller.ID)
}

func (s *CartService) RemoveItem(ctx context.Context, caller entity.Caller, menuItemID string) error {
	if err := access.Check(caller, access.Customers, nil); err != nil {
		return err
	}
	return s.store.RemoveCartEntry(ctx, caller.ID, menuItemID)
}
