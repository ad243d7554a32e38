package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/md-rashed-zaman/meetsched/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the idempotent schema for meetings, provider tokens
// and the outbox.
func EnsureSchema(ctx context.Context, pool *db.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
