package db

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var Schema string

// ApplySchema creates any missing tables and indexes. Every statement is
// idempotent, so it is safe to run on each start.
func ApplySchema(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, Schema)
	return err
}
