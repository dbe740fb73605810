package repository

import (
	"context"

	"food-order-service/internal/entity"
)

// Store is the storage handle injected into the services. Implementations
// return apperr.NotFound for missing rows and apperr.Internal for storage failures.
type Store interface {
	// WithTx runs fn inside one transaction, committing only when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id string) (*entity.OrderEntity, error)
	ListOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.OrderEntity, int, error)
	OrderHistory(ctx context.Context, orderID string) ([]entity.StatusChange, error)
	RestaurantIDsByOwner(ctx context.Context, ownerID string) ([]string, error)

	MenuItem(ctx context.Context, id string) (*entity.MenuItem, error)
	UpsertCartEntry(ctx context.Context, entry *entity.CartEntry) error
	ListCart(ctx context.Context, customerID string) ([]entity.CartEntry, error)
	RemoveCartEntry(ctx context.Context, customerID, menuItemID string) error

	Ping(ctx context.Context) error
}

// Tx is the set of reads and writes available inside Store.WithTx.
type Tx interface {
	Restaurant(ctx context.Context, id string) (*entity.Restaurant, error)
	// RestaurantMenuItem resolves an item only if it belongs to restaurantID.
	RestaurantMenuItem(ctx context.Context, restaurantID, itemID string) (*entity.MenuItem, error)

	// InsertOrder returns apperr.Conflict when the order number is taken.
	InsertOrder(ctx context.Context, order *entity.OrderEntity) error
	InsertOrderLines(ctx context.Context, orderID string, lines []entity.OrderLine) error
	IncrementMenuItemOrders(ctx context.Context, itemID string, delta int) error
	ClearCart(ctx context.Context, customerID, restaurantID string) (int64, error)

	// LockOrder loads an order without lines and holds it until the transaction ends.
	LockOrder(ctx context.Context, id string) (*entity.OrderEntity, error)
	UpdateOrderStatus(ctx context.Context, order *entity.OrderEntity) error
	AppendStatusChange(ctx context.Context, change entity.StatusChange) error
}

var (
	_ Store = (*OrderRepository)(nil)
	_ Store = (*MemoryRepository)(nil)
)
