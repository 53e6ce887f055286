// Package reconcile merges adapter outcomes into one metric row per entity
// per day. It never fails: a run where every source is down still yields a
// row, with values carried forward from the most recent persisted state where
// available and absent otherwise.
package reconcile

import (
	"dexpulse/internal/model"
)

// Outcome is one adapter's result for this run.
type Outcome struct {
	Result model.SourceResult
	Err    error
}

// Failed reports whether the outcome carries no usable data; a success that
// resolved zero fields counts as a failure, same as a not-found.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Result.Empty()
}

// Reconcile builds the row for (entity, date) from the per-adapter outcomes.
// For every field the first successful adapter in its priority list wins; if
// none succeeded the value falls back to lastKnown; otherwise it stays absent.
func Reconcile(
	entity model.Entity,
	date string,
	priorities map[model.MetricField][]string,
	outcomes map[string]Outcome,
	lastKnown *model.MetricRow,
) model.MetricRow {
	row := model.NewMetricRow(entity.ID, date)

	for field, adapters := range priorities {
		resolved := false
		for _, name := range adapters {
			outcome, ok := outcomes[name]
			if !ok || outcome.Failed() {
				continue
			}
			if v, ok := outcome.Result.Fields[field]; ok {
				row.Set(field, v)
				resolved = true
				break
			}
		}
		if !resolved && lastKnown != nil {
			if v, ok := lastKnown.Value(field); ok {
				row.Set(field, v)
			}
		}
	}

	return row
}
