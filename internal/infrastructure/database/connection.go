package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/speakup-platform/speakup-backend/internal/infrastructure/config"
)

// ConnectionPool wraps the pgx pool and exposes a database/sql handle
// for the repository layer.
type ConnectionPool struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger *zap.Logger
}

// NewConnectionPool connects to Postgres and verifies the connection.
func NewConnectionPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*ConnectionPool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database pool initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return &ConnectionPool{pool: pool, db: db, logger: logger}, nil
}

// DB returns the database/sql handle backed by the pgx pool.
func (p *ConnectionPool) DB() *sql.DB {
	return p.db
}

// Pool returns the underlying pgx pool.
func (p *ConnectionPool) Pool() *pgxpool.Pool {
	return p.pool
}

// HealthCheck verifies the database is reachable.
func (p *ConnectionPool) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases both handles.
func (p *ConnectionPool) Close() error {
	err := p.db.Close()
	p.pool.Close()
	return err
}
