package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect smooths over the few SQL differences between MySQL and Postgres.
type Dialect struct {
	Name string
}

var (
	MySQL    = Dialect{Name: "mysql"}
	Postgres = Dialect{Name: "pgx"}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case MySQL.Name:
		return MySQL, nil
	case Postgres.Name:
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported driver %q", driver)
}

// Rebind rewrites ? placeholders into $n for Postgres. Queries must not
// contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres.Name {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ForUpdate is the row-lock suffix for SELECT statements.
func (d Dialect) ForUpdate() string {
	return " FOR UPDATE"
}

func (d Dialect) UpsertCartEntry() string {
	if d.Name == Postgres.Name {
		return `INSERT INTO cart_entries (id, customer_id, menu_item_id, quantity, special_request, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (customer_id, menu_item_id)
			DO UPDATE SET quantity = EXCLUDED.quantity, special_request = EXCLUDED.special_request, updated_at = EXCLUDED.updated_at`
	}
	return `INSERT INTO cart_entries (id, customer_id, menu_item_id, quantity, special_request, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity), special_request = VALUES(special_request), updated_at = VALUES(updated_at)`
}

// IsUniqueViolation reports whether err came from a unique index rejecting an insert.
func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
