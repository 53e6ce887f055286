package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dexpulse/internal/model"
)

// LlamaIncentives extracts bribe payouts from the DefiLlama incentives
// endpoint. The payload schema varies by project and day, so extraction is
// best-effort over the shapes observed in the wild; anything unrecognized is
// reported as NotFound rather than guessed at.
type LlamaIncentives struct {
	client  *http.Client
	baseURL string
	sink    *RawSink
}

func NewLlamaIncentives(sink *RawSink) *LlamaIncentives {
	return &LlamaIncentives{
		client:  newHTTPClient(),
		baseURL: llamaAPI,
		sink:    sink,
	}
}

func (l *LlamaIncentives) Name() string { return "llama_incentives" }

func (l *LlamaIncentives) Fields() []model.MetricField {
	return []model.MetricField{model.FieldBribes24h, model.FieldBribes7d}
}

func (l *LlamaIncentives) Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error) {
	slug := entity.LlamaSlug
	if slug == "" {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("entity %s has no llama slug", entity.ID))
	}

	var payload any
	body, err := getJSON(ctx, l.client, fmt.Sprintf("%s/incentives/%s", l.baseURL, slug), &payload)
	if body != nil {
		_ = l.sink.Dump(l.Name(), entity.ID, body)
	}
	if err != nil {
		return model.SourceResult{}, err
	}

	b24, b7 := extractBribes(payload)
	if b24 == nil && b7 == nil {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("no bribe totals in incentives payload for %s", slug))
	}

	result := model.NewSourceResult(l.Name())
	if b24 != nil {
		result.Set(model.FieldBribes24h, *b24)
	}
	if b7 != nil {
		result.Set(model.FieldBribes7d, *b7)
	}
	return result, nil
}

// extractBribes handles the known incentives payload shapes: direct totals
// keyed at the top level, a flat entry list, or an entry list nested under a
// common collection key.
func extractBribes(payload any) (b24, b7 *float64) {
	switch p := payload.(type) {
	case map[string]any:
		for _, key := range []string{"bribes24hUsd", "bribes_24h_usd", "bribes24h", "totalBribes24hUsd"} {
			if v, ok := asFloat(p[key]); ok {
				b24 = &v
				if w, ok := asFloat(p["bribes7dUsd"]); ok {
					b7 = &w
				} else if w, ok := asFloat(p["totalBribes7dUsd"]); ok {
					b7 = &w
				}
				return b24, b7
			}
		}
		for _, key := range []string{"data", "list", "entries", "items", "protocols", "pools"} {
			if list, ok := p[key].([]any); ok {
				return sumBribeEntries(list)
			}
		}
	case []any:
		return sumBribeEntries(p)
	}
	return nil, nil
}

func sumBribeEntries(entries []any) (b24, b7 *float64) {
	var sum24, sum7 float64
	var seen24, seen7 bool

	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := entry["type"].(string)
		if !strings.Contains(strings.ToLower(kind), "bribe") {
			continue
		}
		value, ok := asFloat(entry["valueUsd"])
		if !ok {
			if value, ok = asFloat(entry["usd"]); !ok {
				if value, ok = asFloat(entry["value"]); !ok {
					continue
				}
			}
		}
		window, _ := entry["window"].(string)
		if window == "" {
			window, _ = entry["period"].(string)
		}
		switch {
		case strings.Contains(window, "24"):
			sum24 += value
			seen24 = true
		case strings.Contains(window, "7"):
			sum7 += value
			seen7 = true
		}
	}

	if seen24 {
		b24 = &sum24
	}
	if seen7 {
		b7 = &sum7
	}
	return b24, b7
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
