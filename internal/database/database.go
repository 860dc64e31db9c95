// Package database manages the PostgreSQL pool backing the station catalog.
package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds pool settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// MaxOpenConns caps the pool.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the number of connections kept warm.
	// Default: 2
	MaxIdleConns int

	// ConnMaxLifetime recycles connections.
	// Default: 30 minutes
	ConnMaxLifetime time.Duration
}

// DSN returns the connection URL. User and password are escaped.
func (c Config) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// PoolConfig converts c into a pgx pool configuration.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	maxOpen, maxIdle, lifetime := c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle < 0 {
		maxIdle = 0
	} else if maxIdle == 0 {
		maxIdle = 2
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}

	poolConfig.MaxConns = int32(maxOpen) //nolint:gosec // bounded by config
	poolConfig.MinConns = int32(maxIdle) //nolint:gosec // bounded by config
	poolConfig.MaxConnLifetime = lifetime
	return poolConfig, nil
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
