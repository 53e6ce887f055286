// Package source contains the upstream provider adapters. Each adapter fetches
// one metric family for one entity and reports either a partial field map or a
// typed failure; no adapter error ever escapes as a panic or aborts the run.
package source

import (
	"context"

	"dexpulse/internal/model"
)

// Adapter fetches a subset of metric fields for an entity from one provider.
type Adapter interface {
	// Name is the unique identifier used in per-field priority lists.
	Name() string

	// Fields lists the metric fields this adapter can resolve.
	Fields() []model.MetricField

	// Fetch retrieves current values. Network, schema, and lookup problems are
	// returned as *model.FetchError; a success may cover only some fields.
	Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error)
}
