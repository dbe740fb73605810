package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM orders WHERE customer_id = ? AND status = ? LIMIT ? OFFSET ?"

	if got := MySQL.Rebind(q); got != q {
		t.Errorf("mysql query should be untouched, got %s", got)
	}

	want := "SELECT id FROM orders WHERE customer_id = $1 AND status = $2 LIMIT $3 OFFSET $4"
	if got := Postgres.Rebind(q); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestDialectFor(t *testing.T) {
	if d, err := DialectFor("pgx"); err != nil || d != Postgres {
		t.Errorf("expected postgres dialect, got %v %v", d, err)
	}
	if _, err := DialectFor("sqlite3"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"postgres unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"plain", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, d := range []Dialect{MySQL, Postgres} {
		files, err := MigrationFiles(d)
		if err != nil {
			t.Fatalf("%s: %v", d.Name, err)
		}
		if len(files) == 0 || files[0] != "001_init.sql" {
			t.Fatalf("%s: unexpected files %v", d.Name, files)
		}

		content, err := migrationFS.ReadFile("migrations/" + d.Name + "/" + files[0])
		if err != nil {
			t.Fatalf("%s: %v", d.Name, err)
		}
		stmts := SplitStatements(string(content))
		for _, table := range []string{"restaurants", "menu_items", "orders", "order_lines", "order_status_log", "cart_entries"} {
			found := false
			for _, s := range stmts {
				if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" (") {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: table %s missing from schema", d.Name, table)
			}
		}
	}
}

func TestSplitStatements(t *testing.T) {
	got := SplitStatements("CREATE TABLE a (id INT);\n\n  CREATE INDEX b ON a (id);\n")
	if len(got) != 2 || got[1] != "CREATE INDEX b ON a (id)" {
		t.Errorf("unexpected statements: %q", got)
	}
}
