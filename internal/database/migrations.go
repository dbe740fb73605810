package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations
var migrationFS embed.FS

// RunMigrations applies every embedded migration for the dialect that is not
// yet recorded in schema_migrations, in file name order.
func RunMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		migration_name VARCHAR(255) NOT NULL PRIMARY KEY,
		applied_at     VARCHAR(64)  NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := MigrationFiles(d)
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, file := range files {
		if applied[file] {
			continue
		}
		content, err := migrationFS.ReadFile(path.Join("migrations", d.Name, file))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", file, err)
			}
		}
		record := d.Rebind("INSERT INTO schema_migrations (migration_name, applied_at) VALUES (?, ?)")
		if _, err := db.ExecContext(ctx, record, file, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}
		logger.Info().Str("migration", file).Msg("migration applied")
	}
	return nil
}

// MigrationFiles lists the embedded .sql files for the dialect, sorted.
func MigrationFiles(d Dialect) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, path.Join("migrations", d.Name))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT migration_name FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// SplitStatements breaks a migration file into individual statements. The
// mysql driver rejects multi-statement Exec calls without multiStatements=true.
func SplitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
