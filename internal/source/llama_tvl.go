package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dexpulse/internal/model"
)

const llamaAPI = "https://api.llama.fi"

// LlamaTVL reads total value locked from DefiLlama, trying the lightweight
// /tvl endpoint first and falling back to the last point of the protocol
// timeseries when the simple form is unavailable.
type LlamaTVL struct {
	client  *http.Client
	baseURL string
	sink    *RawSink
}

func NewLlamaTVL(sink *RawSink) *LlamaTVL {
	return &LlamaTVL{
		client:  newHTTPClient(),
		baseURL: llamaAPI,
		sink:    sink,
	}
}

func (l *LlamaTVL) Name() string { return "llama_tvl" }

func (l *LlamaTVL) Fields() []model.MetricField {
	return []model.MetricField{model.FieldTVL}
}

func (l *LlamaTVL) Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error) {
	slug := entity.LlamaSlug
	if slug == "" {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("entity %s has no llama slug", entity.ID))
	}

	if v, err := l.fetchSimple(ctx, entity, slug); err == nil {
		result := model.NewSourceResult(l.Name())
		result.Set(model.FieldTVL, v)
		return result, nil
	} else if model.KindOf(err) == model.ErrUnreachable {
		return model.SourceResult{}, err
	}

	v, err := l.fetchProtocolSeries(ctx, entity, slug)
	if err != nil {
		return model.SourceResult{}, err
	}

	result := model.NewSourceResult(l.Name())
	result.Set(model.FieldTVL, v)
	return result, nil
}

// fetchSimple handles /tvl/{slug}, which returns either a bare number or an
// object carrying a "tvl" number.
func (l *LlamaTVL) fetchSimple(ctx context.Context, entity model.Entity, slug string) (float64, error) {
	var raw json.RawMessage
	body, err := getJSON(ctx, l.client, fmt.Sprintf("%s/tvl/%s", l.baseURL, slug), &raw)
	if body != nil {
		_ = l.sink.Dump(l.Name(), entity.ID, body)
	}
	if err != nil {
		return 0, err
	}

	var num float64
	if json.Unmarshal(raw, &num) == nil {
		return num, nil
	}

	var obj struct {
		TVL *float64 `json:"tvl"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.TVL != nil {
		return *obj.TVL, nil
	}

	return 0, model.NewFetchError(model.ErrBadSchema, fmt.Errorf("unexpected /tvl payload for %s", slug))
}

// fetchProtocolSeries handles /protocol/{slug}; the tvl series elements are
// either [timestamp, value] pairs or objects with totalLiquidityUSD.
func (l *LlamaTVL) fetchProtocolSeries(ctx context.Context, entity model.Entity, slug string) (float64, error) {
	var payload struct {
		TVL []json.RawMessage `json:"tvl"`
	}
	body, err := getJSON(ctx, l.client, fmt.Sprintf("%s/protocol/%s", l.baseURL, slug), &payload)
	if body != nil {
		_ = l.sink.Dump(l.Name()+"_protocol", entity.ID, body)
	}
	if err != nil {
		return 0, err
	}
	if len(payload.TVL) == 0 {
		return 0, model.NewFetchError(model.ErrNotFound, fmt.Errorf("no tvl series for %s", slug))
	}

	last := payload.TVL[len(payload.TVL)-1]

	var pair [2]float64
	if json.Unmarshal(last, &pair) == nil {
		return pair[1], nil
	}

	var point struct {
		TotalLiquidityUSD *float64 `json:"totalLiquidityUSD"`
	}
	if json.Unmarshal(last, &point) == nil && point.TotalLiquidityUSD != nil {
		return *point.TotalLiquidityUSD, nil
	}

	return 0, model.NewFetchError(model.ErrBadSchema, fmt.Errorf("unexpected tvl series point for %s", slug))
}
