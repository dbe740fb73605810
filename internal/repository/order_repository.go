// Package repository
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"food-order-service/internal/apperr"
	"food-order-service/internal/database"
	"food-order-service/internal/entity"
)

const orderColumns = `o.id, o.order_number, o.customer_id, o.restaurant_id, r.owner_id,
	o.subtotal, o.delivery_fee, o.tax_amount, o.discount, o.final_amount,
	o.payment_method, o.payment_status, o.delivery_address, o.special_instructions,
	o.status, o.estimated_delivery_at, o.delivered_at, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o JOIN restaurants r ON r.id = o.restaurant_id`

const lineColumns = `id, order_id, menu_item_id, name, quantity, unit_price, line_total, special_request`

type scanner interface {
	Scan(dest ...any) error
}

type OrderRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewOrderRepository(db *sql.DB, dialect database.Dialect) *OrderRepository {
	return &OrderRepository{
		db:      db,
		dialect: dialect,
	}
}

func (r *OrderRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.Internal, err, "database unreachable")
	}
	return nil
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&orderTx{tx: tx, dialect: r.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.Internal, err, "commit transaction")
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*entity.OrderEntity, error) {
	q := r.dialect.Rebind(`SELECT ` + orderColumns + orderFrom + ` WHERE o.id = ?`)
	order, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}

	lines, err := r.linesFor(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]
	return order, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.OrderEntity, int, error) {
	where := []string{"1 = 1"}
	var args []any
	if filter.CustomerID != "" {
		where = append(where, "o.customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.OwnerID != "" {
		where = append(where, "r.owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, string(filter.Status))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := r.dialect.Rebind(`SELECT COUNT(*)` + orderFrom + cond)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, err, "count orders")
	}

	listQuery := r.dialect.Rebind(`SELECT ` + orderColumns + orderFrom + cond +
		` ORDER BY o.created_at DESC, o.id LIMIT ? OFFSET ?`)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, filter.PageSize, filter.Offset())...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, err, "list orders")
	}
	defer rows.Close()

	orders := make([]entity.OrderEntity, 0, filter.PageSize)
	ids := make([]string, 0, filter.PageSize)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.Internal, err, "scan order")
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.Internal, err, "list orders")
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, total, nil
}

func (r *OrderRepository) OrderHistory(ctx context.Context, orderID string) ([]entity.StatusChange, error) {
	q := r.dialect.Rebind(`SELECT id, order_id, from_status, to_status, changed_by, created_at
		FROM order_status_log WHERE order_id = ? ORDER BY created_at, id`)
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load status history")
	}
	defer rows.Close()

	var history []entity.StatusChange
	for rows.Next() {
		var c entity.StatusChange
		var from sql.NullString
		if err := rows.Scan(&c.ID, &c.OrderID, &from, &c.ToStatus, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan status change")
		}
		c.FromStatus = entity.OrderStatus(from.String)
		history = append(history, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load status history")
	}
	return history, nil
}

func (r *OrderRepository) RestaurantIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT id FROM restaurants WHERE owner_id = ? ORDER BY id`), ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load restaurants")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan restaurant")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// linesFor loads the lines of every order in ids, keyed by order id.
func (r *OrderRepository) linesFor(ctx context.Context, ids []string) (map[string][]entity.OrderLine, error) {
	out := make(map[string][]entity.OrderLine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	q := r.dialect.Rebind(`SELECT ` + lineColumns + ` FROM order_lines WHERE order_id IN (` + placeholders + `) ORDER BY order_id, position`)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load order lines")
	}
	defer rows.Close()

	for rows.Next() {
		var l entity.OrderLine
		var special sql.NullString
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Name, &l.Quantity, &l.UnitPrice, &l.LineTotal, &special); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan order line")
		}
		l.SpecialRequest = special.String
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load order lines")
	}
	return out, nil
}

type orderTx struct {
	tx      *sql.Tx
	dialect database.Dialect
}

func (t *orderTx) Restaurant(ctx context.Context, id string) (*entity.Restaurant, error) {
	q := t.dialect.Rebind(`SELECT id, owner_id, name, active, delivery_fee FROM restaurants WHERE id = ?`)
	var rest entity.Restaurant
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&rest.ID, &rest.OwnerID, &rest.Name, &rest.Active, &rest.DeliveryFee)
	if err != nil {
		return nil, notFoundOr(err, "restaurant %s not found", id)
	}
	return &rest, nil
}

func (t *orderTx) RestaurantMenuItem(ctx context.Context, restaurantID, itemID string) (*entity.MenuItem, error) {
	q := t.dialect.Rebind(`SELECT id, restaurant_id, name, price, available, total_orders
		FROM menu_items WHERE id = ? AND restaurant_id = ?`)
	item, err := scanMenuItem(t.tx.QueryRowContext(ctx, q, itemID, restaurantID))
	if err != nil {
		return nil, notFoundOr(err, "menu item %s not found in restaurant %s", itemID, restaurantID)
	}
	return item, nil
}

func (t *orderTx) InsertOrder(ctx context.Context, order *entity.OrderEntity) error {
	address, err := json.Marshal(order.DeliveryAddress)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, err, "encode delivery address")
	}

	q := t.dialect.Rebind(`INSERT INTO orders (id, order_number, customer_id, restaurant_id,
		subtotal, delivery_fee, tax_amount, discount, final_amount,
		payment_method, payment_status, delivery_address, special_instructions,
		status, estimated_delivery_at, delivered_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = t.tx.ExecContext(ctx, q,
		order.ID, order.OrderNumber, order.CustomerID, order.RestaurantID,
		order.Subtotal, order.DeliveryFee, order.TaxAmount, order.Discount, order.FinalAmount,
		string(order.PaymentMethod), string(order.PaymentStatus), string(address), nullString(order.SpecialInstructions),
		string(order.Status), order.EstimatedDeliveryAt, nullTime(order.DeliveredAt), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, err, "order number already exists")
		}
		return apperr.Wrap(apperr.Internal, err, "insert order")
	}
	return nil
}

func (t *orderTx) InsertOrderLines(ctx context.Context, orderID string, lines []entity.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	// batch insert
	query := `INSERT INTO order_lines (id, order_id, menu_item_id, name, quantity, unit_price, line_total, special_request, position) VALUES `
	values := make([]any, 0, len(lines)*9)
	for i, l := range lines {
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?),"
		values = append(values, l.ID, orderID, l.MenuItemID, l.Name, l.Quantity, l.UnitPrice, l.LineTotal, nullString(l.SpecialRequest), i)
	}
	// remove the trailing comma
	query = query[:len(query)-1]

	if _, err := t.tx.ExecContext(ctx, t.dialect.Rebind(query), values...); err != nil {
		return apperr.Wrap(apperr.Internal, err, "insert order lines")
	}
	return nil
}

func (t *orderTx) IncrementMenuItemOrders(ctx context.Context, itemID string, delta int) error {
	q := t.dialect.Rebind(`UPDATE menu_items SET total_orders = total_orders + ? WHERE id = ?`)
	if _, err := t.tx.ExecContext(ctx, q, delta, itemID); err != nil {
		return apperr.Wrap(apperr.Internal, err, "increment menu item orders")
	}
	return nil
}

func (t *orderTx) ClearCart(ctx context.Context, customerID, restaurantID string) (int64, error) {
	q := t.dialect.Rebind(`DELETE FROM cart_entries WHERE customer_id = ?
		AND menu_item_id IN (SELECT id FROM menu_items WHERE restaurant_id = ?)`)
	res, err := t.tx.ExecContext(ctx, q, customerID, restaurantID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err, "clear cart")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// LockOrder locks only the orders row; the restaurant join is read unlocked so
// transitions on sibling orders do not serialize.
func (t *orderTx) LockOrder(ctx context.Context, id string) (*entity.OrderEntity, error) {
	var locked string
	lock := t.dialect.Rebind(`SELECT id FROM orders WHERE id = ?` + t.dialect.ForUpdate())
	if err := t.tx.QueryRowContext(ctx, lock, id).Scan(&locked); err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}

	q := t.dialect.Rebind(`SELECT ` + orderColumns + orderFrom + ` WHERE o.id = ?`)
	order, err := scanOrder(t.tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}
	return order, nil
}

func (t *orderTx) UpdateOrderStatus(ctx context.Context, order *entity.OrderEntity) error {
	q := t.dialect.Rebind(`UPDATE orders SET status = ?, payment_status = ?, delivered_at = ?, updated_at = ? WHERE id = ?`)
	res, err := t.tx.ExecContext(ctx, q, string(order.Status), string(order.PaymentStatus), nullTime(order.DeliveredAt), order.UpdatedAt, order.ID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "update order status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.NotFound, "order %s not found", order.ID)
	}
	return nil
}

func (t *orderTx) AppendStatusChange(ctx context.Context, c entity.StatusChange) error {
	q := t.dialect.Rebind(`INSERT INTO order_status_log (id, order_id, from_status, to_status, changed_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := t.tx.ExecContext(ctx, q, c.ID, c.OrderID, nullString(string(c.FromStatus)), string(c.ToStatus), c.ChangedBy, c.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "insert status change")
	}
	return nil
}

func scanOrder(row scanner) (*entity.OrderEntity, error) {
	var o entity.OrderEntity
	var address []byte
	var instructions sql.NullString
	var deliveredAt sql.NullTime
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.RestaurantID, &o.RestaurantOwnerID,
		&o.Subtotal, &o.DeliveryFee, &o.TaxAmount, &o.Discount, &o.FinalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &address, &instructions,
		&o.Status, &o.EstimatedDeliveryAt, &deliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.DeliveryAddress); err != nil {
		return nil, err
	}
	o.SpecialInstructions = instructions.String
	if deliveredAt.Valid {
		t := deliveredAt.Time
		o.DeliveredAt = &t
	}
	return &o, nil
}

func scanMenuItem(row scanner) (*entity.MenuItem, error) {
	var m entity.MenuItem
	if err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Available, &m.TotalOrders); err != nil {
		return nil, err
	}
	return &m, nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.NotFound, format, args...)
	}
	return apperr.Wrap(apperr.Internal, err, "query failed")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
