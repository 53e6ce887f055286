package model

import "fmt"

// MetricField identifies one measurable quantity kind, in USD.
type MetricField string

const (
	FieldVolume24h      MetricField = "volume_24h"
	FieldTVL            MetricField = "tvl"
	FieldFees24h        MetricField = "fees_24h"
	FieldFees7d         MetricField = "fees_7d"
	FieldRevenue24h     MetricField = "revenue_24h"
	FieldRevenue7d      MetricField = "revenue_7d"
	FieldBribes24h      MetricField = "bribes_24h"
	FieldBribes7d       MetricField = "bribes_7d"
	FieldChainVolume24h MetricField = "chain_volume_24h"
)

// AllFields lists every known field in persistence column order.
var AllFields = []MetricField{
	FieldVolume24h,
	FieldTVL,
	FieldFees24h,
	FieldFees7d,
	FieldRevenue24h,
	FieldRevenue7d,
	FieldBribes24h,
	FieldBribes7d,
	FieldChainVolume24h,
}

// ParseMetricField validates a field name from configuration.
func ParseMetricField(name string) (MetricField, error) {
	for _, f := range AllFields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown metric field: %s", name)
}
