package repository

import (
	"context"
	"database/sql"

	"food-order-service/internal/apperr"
	"food-order-service/internal/entity"
)

func (r *OrderRepository) MenuItem(ctx context.Context, id string) (*entity.MenuItem, error) {
	q := r.dialect.Rebind(`SELECT id, restaurant_id, name, price, available, total_orders FROM menu_items WHERE id = ?`)
	item, err := scanMenuItem(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "menu item %s not found", id)
	}
	return item, nil
}

// UpsertCartEntry inserts or replaces the (customer, item) entry and leaves
// the stored id in e.ID.
func (r *OrderRepository) UpsertCartEntry(ctx context.Context, e *entity.CartEntry) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(r.dialect.UpsertCartEntry()),
		e.ID, e.CustomerID, e.MenuItemID, e.Quantity, nullString(e.SpecialRequest), e.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "upsert cart entry")
	}

	// an existing row keeps its id
	q := r.dialect.Rebind(`SELECT id FROM cart_entries WHERE customer_id = ? AND menu_item_id = ?`)
	if err := r.db.QueryRowContext(ctx, q, e.CustomerID, e.MenuItemID).Scan(&e.ID); err != nil {
		return apperr.Wrap(apperr.Internal, err, "reload cart entry")
	}
	return nil
}

func (r *OrderRepository) ListCart(ctx context.Context, customerID string) ([]entity.CartEntry, error) {
	q := r.dialect.Rebind(`SELECT c.id, c.customer_id, c.menu_item_id, m.restaurant_id, m.name, m.price,
		c.quantity, c.special_request, c.updated_at
		FROM cart_entries c JOIN menu_items m ON m.id = c.menu_item_id
		WHERE c.customer_id = ? ORDER BY m.restaurant_id, c.updated_at`)
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list cart")
	}
	defer rows.Close()

	entries := []entity.CartEntry{}
	for rows.Next() {
		var e entity.CartEntry
		var special sql.NullString
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.MenuItemID, &e.RestaurantID, &e.Name, &e.Price,
			&e.Quantity, &special, &e.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan cart entry")
		}
		e.SpecialRequest = special.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list cart")
	}
	return entries, nil
}

func (r *OrderRepository) RemoveCartEntry(ctx context.Context, customerID, menuItemID string) error {
	q := r.dialect.Rebind(`DELETE FROM cart_entries WHERE customer_id = ? AND menu_item_id = ?`)
	res, err := r.db.ExecContext(ctx, q, customerID, menuItemID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "remove cart entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.NotFound, "menu item %s is not in the cart", menuItemID)
	}
	return nil
}
