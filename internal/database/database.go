// Package database opens the SQL pool shared by the postgres and mysql repositories.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ErrNoConnection is returned for drivers that keep state in process.
var ErrNoConnection = errors.New("driver has no sql connection")

// ErrUnsupportedDriver is returned for drivers outside Drivers.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Drivers lists the sql driver names the repositories ship implementations for.
var Drivers = []string{"postgres", "mysql"}

const defaultPingTimeout = 5 * time.Second

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	// PingTimeout bounds the initial reachability check. Zero means 5s.
	PingTimeout time.Duration
}

// Connect is ConnectContext with a background context.
func Connect(cfg Config) (*sql.DB, error) {
	return ConnectContext(context.Background(), cfg)
}

// ConnectContext opens a pool for cfg.Driver and verifies it answers a ping
// before returning. The pool is closed when the ping fails.
func ConnectContext(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := validateDriver(cfg.Driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func validateDriver(driver string) error {
	if driver == "memory" {
		return fmt.Errorf("%q: %w", driver, ErrNoConnection)
	}
	for _, d := range Drivers {
		if d == driver {
			return nil
		}
	}
	return fmt.Errorf("%q: %w", driver, ErrUnsupportedDriver)
}
