package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dexpulse/internal/match"
	"dexpulse/internal/model"
)

const dexScreenerAPI = "https://api.dexscreener.com/latest/dex/search"

type dsPair struct {
	ChainID string `json:"chainId"`
	DexID   string `json:"dexId"`
	URL     string `json:"url"`
	Volume  struct {
		H24 *float64 `json:"h24"`
	} `json:"volume"`
}

type dsSearchResponse struct {
	Pairs []dsPair `json:"pairs"`
}

// DexScreener resolves 24h trading volume by summing the pair-search results
// that belong to the entity's DEX on its home chain.
type DexScreener struct {
	client  *http.Client
	baseURL string
	sink    *RawSink
}

func NewDexScreener(sink *RawSink) *DexScreener {
	return &DexScreener{
		client:  newHTTPClient(),
		baseURL: dexScreenerAPI,
		sink:    sink,
	}
}

func (d *DexScreener) Name() string { return "dexscreener" }

func (d *DexScreener) Fields() []model.MetricField {
	return []model.MetricField{model.FieldVolume24h}
}

func (d *DexScreener) Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error) {
	query := entity.SearchQuery
	if query == "" {
		query = strings.TrimSpace(entity.Name + " " + entity.Chain)
	}

	var payload dsSearchResponse
	body, err := getJSON(ctx, d.client, d.baseURL+"?q="+url.QueryEscape(query), &payload)
	if body != nil {
		_ = d.sink.Dump(d.Name(), entity.ID, body)
	}
	if err != nil {
		return model.SourceResult{}, err
	}

	canonical, aliases := entity.AliasSet()

	var total float64
	matched := 0
	for _, p := range payload.Pairs {
		if entity.Chain != "" && !strings.EqualFold(p.ChainID, entity.Chain) {
			continue
		}
		if !match.Resolve(p.DexID, canonical, aliases) && !match.Resolve(p.URL, canonical, aliases) {
			continue
		}
		if p.Volume.H24 == nil {
			continue
		}
		total += *p.Volume.H24
		matched++
	}

	if matched == 0 {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("no pairs matched %q among %d results", entity.Name, len(payload.Pairs)))
	}

	result := model.NewSourceResult(d.Name())
	result.Set(model.FieldVolume24h, total)
	return result, nil
}
