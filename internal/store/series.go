package store

import (
	"sort"

	"dexpulse/internal/model"
)

// rollingWindow is the number of rows in the trailing volume window. The
// window counts available rows, not calendar days, so gaps in the series do
// not shrink it.
const rollingWindow = 7

// applyUpsert replaces the row matching (entity, date), re-sorts the series
// by date, and recomputes the rolling aggregates. rows must all belong to the
// same entity.
func applyUpsert(rows []model.MetricRow, row model.MetricRow) []model.MetricRow {
	out := make([]model.MetricRow, 0, len(rows)+1)
	for _, r := range rows {
		if r.Date == row.Date {
			continue
		}
		out = append(out, r)
	}
	out = append(out, row)

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	RecomputeRolling(out)
	return out
}

// RecomputeRolling rewrites Rolling7dVolume for every row as the mean of the
// non-absent volume_24h values among that row and up to the six preceding
// rows. A single data point yields itself; a window with no volumes at all
// yields absent.
func RecomputeRolling(rows []model.MetricRow) {
	for i := range rows {
		start := i - rollingWindow + 1
		if start < 0 {
			start = 0
		}

		var sum float64
		var n int
		for j := start; j <= i; j++ {
			if v, ok := rows[j].Value(model.FieldVolume24h); ok {
				sum += v
				n++
			}
		}

		if n == 0 {
			rows[i].Rolling7dVolume = nil
			continue
		}
		mean := sum / float64(n)
		rows[i].Rolling7dVolume = &mean
	}
}

// Latest returns the most recent row, or nil for an empty series.
func Latest(rows []model.MetricRow) *model.MetricRow {
	if len(rows) == 0 {
		return nil
	}
	return &rows[len(rows)-1]
}

// Previous returns the most recent row strictly before date, or nil.
func Previous(rows []model.MetricRow, date string) *model.MetricRow {
	var prev *model.MetricRow
	for i := range rows {
		if rows[i].Date >= date {
			break
		}
		prev = &rows[i]
	}
	return prev
}

// Row returns the row for the given date, or nil.
func Row(rows []model.MetricRow, date string) *model.MetricRow {
	for i := range rows {
		if rows[i].Date == date {
			return &rows[i]
		}
	}
	return nil
}
