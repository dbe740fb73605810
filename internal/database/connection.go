// Package database opens the relational store and keeps its schema current.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"food-order-service/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "database").Logger()

const (
	retryDelay = 2 * time.Second
	pingTTL    = 5 * time.Second
)

// Connect opens a pool for cfg.Driver and pings it, retrying until
// cfg.ConnectRetries attempts are spent or ctx is done.
func Connect(ctx context.Context, cfg config.DBConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, dialect, err
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var db *sql.DB
	for i := 1; i <= retries; i++ {
		db, err = sql.Open(cfg.Driver, cfg.DSN)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				db.SetMaxOpenConns(cfg.MaxOpenConns)
				db.SetMaxIdleConns(cfg.MaxIdleConns)
				db.SetConnMaxLifetime(30 * time.Minute)
				logger.Info().Str("driver", cfg.Driver).Int("attempt", i).Msg("database connected")
				return db, dialect, nil
			}
			_ = db.Close()
		}

		logger.Warn().Err(err).Int("attempt", i).Msg("database not ready")
		if i == retries {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, dialect, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}

	return nil, dialect, fmt.Errorf("database unreachable after %d attempts: %w", retries, err)
}
