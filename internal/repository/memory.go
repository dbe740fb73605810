package repository

import (
	"context"
	"sort"
	"sync"

	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"
)

type cartKey struct {
	customerID string
	menuItemID string
}

type memoryData struct {
	restaurants map[string]entity.Restaurant
	menuItems   map[string]entity.MenuItem
	orders      map[string]entity.OrderEntity
	numbers     map[string]string
	history     []entity.StatusChange
	carts       map[cartKey]entity.CartEntry
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		restaurants: make(map[string]entity.Restaurant, len(d.restaurants)),
		menuItems:   make(map[string]entity.MenuItem, len(d.menuItems)),
		orders:      make(map[string]entity.OrderEntity, len(d.orders)),
		numbers:     make(map[string]string, len(d.numbers)),
		history:     append([]entity.StatusChange(nil), d.history...),
		carts:       make(map[cartKey]entity.CartEntry, len(d.carts)),
	}
	for k, v := range d.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range d.menuItems {
		c.menuItems[k] = v
	}
	for k, v := range d.orders {
		v.Lines = append([]entity.OrderLine(nil), v.Lines...)
		c.orders[k] = v
	}
	for k, v := range d.numbers {
		c.numbers[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	return c
}

// MemoryRepository keeps everything in process. Transactions run on a copy
// that replaces the live data only on success.
type MemoryRepository struct {
	mu   sync.Mutex
	data *memoryData
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: (&memoryData{}).clone()}
}

func (r *MemoryRepository) AddRestaurant(rest entity.Restaurant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.restaurants[rest.ID] = rest
}

func (r *MemoryRepository) AddMenuItem(item entity.MenuItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.menuItems[item.ID] = item
}

// OrderCount is the number of committed orders.
func (r *MemoryRepository) OrderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data.orders)
}

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.Internal, err, "begin transaction")
	}
	staged := r.data.clone()
	if err := fn(&memoryTx{data: staged}); err != nil {
		return err
	}
	r.data = staged
	return nil
}

func (r *MemoryRepository) GetOrder(ctx context.Context, id string) (*entity.OrderEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.data.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order %s not found", id)
	}
	return r.data.withOwner(o, true), nil
}

func (r *MemoryRepository) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.OrderEntity, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []entity.OrderEntity
	for _, o := range r.data.orders {
		full := r.data.withOwner(o, true)
		if filter.CustomerID != "" && full.CustomerID != filter.CustomerID {
			continue
		}
		if filter.OwnerID != "" && full.RestaurantOwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && full.Status != filter.Status {
			continue
		}
		matched = append(matched, *full)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)
	return append([]entity.OrderEntity{}, matched[start:end]...), total, nil
}

func (r *MemoryRepository) OrderHistory(ctx context.Context, orderID string) ([]entity.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.StatusChange
	for _, c := range r.data.history {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) RestaurantIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, rest := range r.data.restaurants {
		if rest.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryRepository) MenuItem(ctx context.Context, id string) (*entity.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.data.menuItems[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "menu item %s not found", id)
	}
	return &item, nil
}

func (r *MemoryRepository) UpsertCartEntry(ctx context.Context, e *entity.CartEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{e.CustomerID, e.MenuItemID}
	if existing, ok := r.data.carts[key]; ok {
		e.ID = existing.ID
	}
	r.data.carts[key] = *e
	return nil
}

func (r *MemoryRepository) ListCart(ctx context.Context, customerID string) ([]entity.CartEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := []entity.CartEntry{}
	for key, e := range r.data.carts {
		if key.customerID != customerID {
			continue
		}
		item := r.data.menuItems[key.menuItemID]
		e.RestaurantID = item.RestaurantID
		e.Name = item.Name
		e.Price = item.Price
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RestaurantID != entries[j].RestaurantID {
			return entries[i].RestaurantID < entries[j].RestaurantID
		}
		return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (r *MemoryRepository) RemoveCartEntry(ctx context.Context, customerID, menuItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cartKey{customerID, menuItemID}
	if _, ok := r.data.carts[key]; !ok {
		return apperr.New(apperr.NotFound, "menu item %s is not in the cart", menuItemID)
	}
	delete(r.data.carts, key)
	return nil
}

func (d *memoryData) withOwner(o entity.OrderEntity, lines bool) *entity.OrderEntity {
	o.RestaurantOwnerID = d.restaurants[o.RestaurantID].OwnerID
	if lines {
		o.Lines = append([]entity.OrderLine(nil), o.Lines...)
	} else {
		o.Lines = nil
	}
	return &o
}

type memoryTx struct {
	data *memoryData
}

func (t *memoryTx) Restaurant(ctx context.Context, id string) (*entity.Restaurant, error) {
	rest, ok := t.data.restaurants[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "restaurant %s not found", id)
	}
	return &rest, nil
}

func (t *memoryTx) RestaurantMenuItem(ctx context.Context, restaurantID, itemID string) (*entity.MenuItem, error) {
	item, ok := t.data.menuItems[itemID]
	if !ok || item.RestaurantID != restaurantID {
		return nil, apperr.New(apperr.NotFound, "menu item %s not found in restaurant %s", itemID, restaurantID)
	}
	return &item, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, order *entity.OrderEntity) error {
	if _, taken := t.data.numbers[order.OrderNumber]; taken {
		return apperr.New(apperr.Conflict, "order number already exists")
	}
	stored := *order
	stored.Lines = nil
	stored.RestaurantOwnerID = ""
	t.data.orders[order.ID] = stored
	t.data.numbers[order.OrderNumber] = order.ID
	return nil
}

func (t *memoryTx) InsertOrderLines(ctx context.Context, orderID string, lines []entity.OrderLine) error {
	o, ok := t.data.orders[orderID]
	if !ok {
		return apperr.New(apperr.Internal, "insert lines for unknown order %s", orderID)
	}
	for _, l := range lines {
		l.OrderID = orderID
		o.Lines = append(o.Lines, l)
	}
	t.data.orders[orderID] = o
	return nil
}

func (t *memoryTx) IncrementMenuItemOrders(ctx context.Context, itemID string, delta int) error {
	item, ok := t.data.menuItems[itemID]
	if !ok {
		return apperr.New(apperr.Internal, "increment unknown menu item %s", itemID)
	}
	item.TotalOrders += delta
	t.data.menuItems[itemID] = item
	return nil
}

func (t *memoryTx) ClearCart(ctx context.Context, customerID, restaurantID string) (int64, error) {
	var n int64
	for key := range t.data.carts {
		if key.customerID == customerID && t.data.menuItems[key.menuItemID].RestaurantID == restaurantID {
			delete(t.data.carts, key)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) LockOrder(ctx context.Context, id string) (*entity.OrderEntity, error) {
	o, ok := t.data.orders[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "order %s not found", id)
	}
	return t.data.withOwner(o, false), nil
}

func (t *memoryTx) UpdateOrderStatus(ctx context.Context, order *entity.OrderEntity) error {
	o, ok := t.data.orders[order.ID]
	if !ok {
		return apperr.New(apperr.NotFound, "order %s not found", order.ID)
	}
	o.Status = order.Status
	o.PaymentStatus = order.PaymentStatus
	o.DeliveredAt = order.DeliveredAt
	o.UpdatedAt = order.UpdatedAt
	t.data.orders[order.ID] = o
	return nil
}

func (t *memoryTx) AppendStatusChange(ctx context.Context, c entity.StatusChange) error {
	t.data.history = append(t.data.history, c)
	return nil
}
