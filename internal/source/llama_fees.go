package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dexpulse/internal/model"
)

type llamaFeesSummary struct {
	Total24h       *float64          `json:"total24h"`
	Total7d        *float64          `json:"total7d"`
	Revenue24h     *float64          `json:"revenue24h"`
	Revenue7d      *float64          `json:"revenue7d"`
	TotalDataChart []json.RawMessage `json:"totalDataChart"`
}

// LlamaFees sums the DefiLlama fee summaries of the entity's fee slugs (a DEX
// often has separate AMM and CLMM listings). Revenue figures are taken when
// the summary exposes them.
type LlamaFees struct {
	client  *http.Client
	baseURL string
	sink    *RawSink
}

func NewLlamaFees(sink *RawSink) *LlamaFees {
	return &LlamaFees{
		client:  newHTTPClient(),
		baseURL: llamaAPI,
		sink:    sink,
	}
}

func (l *LlamaFees) Name() string { return "llama_fees" }

func (l *LlamaFees) Fields() []model.MetricField {
	return []model.MetricField{
		model.FieldFees24h,
		model.FieldFees7d,
		model.FieldRevenue24h,
		model.FieldRevenue7d,
	}
}

func (l *LlamaFees) Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error) {
	slugs := entity.FeeSlugs
	if len(slugs) == 0 && entity.LlamaSlug != "" {
		slugs = []string{entity.LlamaSlug}
	}
	if len(slugs) == 0 {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("entity %s has no fee slugs", entity.ID))
	}

	sums := make(map[model.MetricField]float64)
	seen := make(map[model.MetricField]bool)
	var lastErr error

	for _, slug := range slugs {
		summary, err := l.fetchSummary(ctx, entity, slug)
		if err != nil {
			lastErr = err
			continue
		}
		add := func(field model.MetricField, v *float64) {
			if v == nil {
				return
			}
			sums[field] += *v
			seen[field] = true
		}
		add(model.FieldFees24h, summary.Total24h)
		add(model.FieldFees7d, summary.Total7d)
		add(model.FieldRevenue24h, summary.Revenue24h)
		add(model.FieldRevenue7d, summary.Revenue7d)
	}

	if len(seen) == 0 {
		if lastErr != nil {
			return model.SourceResult{}, lastErr
		}
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("no fee totals for %s", entity.ID))
	}

	result := model.NewSourceResult(l.Name())
	for field := range seen {
		result.Set(field, sums[field])
	}
	return result, nil
}

func (l *LlamaFees) fetchSummary(ctx context.Context, entity model.Entity, slug string) (llamaFeesSummary, error) {
	var summary llamaFeesSummary
	body, err := getJSON(ctx, l.client, fmt.Sprintf("%s/summary/fees/%s", l.baseURL, slug), &summary)
	if body != nil {
		_ = l.sink.Dump(l.Name()+"_"+slug, entity.ID, body)
	}
	if err != nil {
		return llamaFeesSummary{}, err
	}

	// Fall back to the last chart point when the summary totals are missing.
	if summary.Total24h == nil && len(summary.TotalDataChart) > 0 {
		var pair [2]float64
		if json.Unmarshal(summary.TotalDataChart[len(summary.TotalDataChart)-1], &pair) == nil {
			summary.Total24h = &pair[1]
		}
	}
	return summary, nil
}
