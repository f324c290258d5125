package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"albumserver/internal/config"
	"albumserver/internal/logging"
	"albumserver/internal/store"
)

// openDatabase establishes a database connection and retries until the instance responds.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL
	if cfg.Driver == store.DriverSQLite {
		dsn = store.SQLiteDSN(cfg.Path)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.Driver == store.DriverSQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	const (
		pingTimeout    = 5 * time.Second
		maxWait        = 30 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)

	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return db, nil
		}

		// Respect caller cancellation.
		if ctx.Err() != nil {
			break
		}

		if time.Now().After(deadline) {
			break
		}

		logging.WithContext(ctx).Warn().Err(lastErr).Dur("retry_in", backoff).Msg("database not ready")
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", lastErr)
}
