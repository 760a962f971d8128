package inits

import (
	"context"
	"fmt"
	"time"

	m "eventconnect_services/src/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTokensTable = `CREATE TABLE IF NOT EXISTS firebase_tokens (
				user_id    TEXT NOT NULL,
				token      TEXT NOT NULL,
				device_id  TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT (now() AT TIME ZONE 'utc'::text),
				PRIMARY KEY (user_id, device_id)
			)`

func CreatePostgresPool(connString string, ctx context.Context) (*m.PGPool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &m.PGPool{Pool: pool}, nil
}

// MigrateTokens creates the device token table used for push notifications.
func MigrateTokens(ctx context.Context, connPool *m.PGPool) error {
	if _, err := connPool.Pool.Exec(ctx, createTokensTable); err != nil {
		return fmt.Errorf("create firebase_tokens: %w", err)
	}
	return nil
}
