package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// schemaLockKey serializes EnsureSchema across replicas booting together.
const schemaLockKey int64 = 0x74616e6b

// Schema returns the DDL for the permission document and live tank tables.
func Schema() string {
	return schema
}

// EnsureSchema creates missing tables. It is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return InTx(ctx, pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
			return fmt.Errorf("db: schema lock: %w", err)
		}
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("db: ensure schema: %w", err)
		}
		return nil
	})
}
