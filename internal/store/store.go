// Package store persists the per-entity daily metric series and owns the
// derived rolling statistics. Three backends exist: a CSV file (default),
// a JSONL file, and Postgres.
package store

import (
	"context"
	"errors"

	"dexpulse/internal/model"
)

// ErrCorrupt marks persisted state that cannot be read. Runs abort before
// composing when they hit it: publishing numbers derived from unknown state
// is worse than publishing nothing.
var ErrCorrupt = errors.New("store: persisted series unreadable")

// Store is a durable, date-keyed table of metric rows per entity.
type Store interface {
	// Series returns the entity's rows sorted by date.
	Series(ctx context.Context, entityID string) ([]model.MetricRow, error)

	// Upsert replaces any row with the same (entity, date), recomputes the
	// rolling aggregates for the whole entity series, and returns it.
	// Applying the same row twice is idempotent.
	Upsert(ctx context.Context, row model.MetricRow) ([]model.MetricRow, error)

	Close() error
}
