package models

import "github.com/jackc/pgx/v5/pgxpool"

type PGPool struct {
	Pool *pgxpool.Pool
}
