package model

import (
	"math"
	"time"
)

// DateLayout is the calendar-date key format used throughout the store.
const DateLayout = "2006-01-02"

// MetricRow is one entity's snapshot for one calendar date. Field values are
// USD amounts; an absent key means the value is unknown for that day.
// Rolling7dVolume is always recomputed by the store, never fetched.
type MetricRow struct {
	Date            string                  `json:"date"`
	EntityID        string                  `json:"entity_id"`
	Fields          map[MetricField]float64 `json:"fields"`
	Rolling7dVolume *float64                `json:"rolling_7d_volume,omitempty"`
}

// NewMetricRow builds an empty row for an entity and date.
func NewMetricRow(entityID, date string) MetricRow {
	return MetricRow{
		Date:     date,
		EntityID: entityID,
		Fields:   make(map[MetricField]float64),
	}
}

// Set stores a field value, normalizing NaN and negative inputs to absent.
func (r *MetricRow) Set(field MetricField, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[MetricField]float64)
	}
	r.Fields[field] = value
}

// Value returns a field value and whether it is present.
func (r MetricRow) Value(field MetricField) (float64, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// ParseDate parses the row's date key; an error marks the row malformed.
func (r MetricRow) ParseDate() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}
