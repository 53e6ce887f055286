package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"dexpulse/internal/match"
	"dexpulse/internal/model"
)

type llamaChainOverview struct {
	Total24h  *float64 `json:"total24h"`
	Protocols []struct {
		Name        string   `json:"name"`
		DisplayName string   `json:"displayName"`
		Total24h    *float64 `json:"total24h"`
	} `json:"protocols"`
}

// LlamaChain reads the per-chain DEX overview: the entity's own 24h volume
// (matched among the listed protocols) plus the chain-wide total used to
// derive a market-share percentage at render time. It doubles as a fallback
// volume source when the pair-search provider is down.
type LlamaChain struct {
	client  *http.Client
	baseURL string
	sink    *RawSink
}

func NewLlamaChain(sink *RawSink) *LlamaChain {
	return &LlamaChain{
		client:  newHTTPClient(),
		baseURL: llamaAPI,
		sink:    sink,
	}
}

func (l *LlamaChain) Name() string { return "llama_chain" }

func (l *LlamaChain) Fields() []model.MetricField {
	return []model.MetricField{model.FieldVolume24h, model.FieldChainVolume24h}
}

func (l *LlamaChain) Fetch(ctx context.Context, entity model.Entity) (model.SourceResult, error) {
	if entity.Chain == "" {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("entity %s has no chain", entity.ID))
	}

	url := fmt.Sprintf("%s/overview/dexs/chain/%s?dataType=dailyVolume", l.baseURL, strings.ToLower(entity.Chain))

	var payload llamaChainOverview
	body, err := getJSON(ctx, l.client, url, &payload)
	if body != nil {
		_ = l.sink.Dump(l.Name(), entity.ID, body)
	}
	if err != nil {
		return model.SourceResult{}, err
	}

	canonical, aliases := entity.AliasSet()

	var chainTotal float64
	var chainSeen bool
	if payload.Total24h != nil {
		chainTotal = *payload.Total24h
		chainSeen = true
	}

	var own *float64
	for _, p := range payload.Protocols {
		if p.Total24h == nil {
			continue
		}
		if !chainSeen {
			chainTotal += *p.Total24h
		}
		if own == nil && (match.Resolve(p.Name, canonical, aliases) || match.Resolve(p.DisplayName, canonical, aliases)) {
			v := *p.Total24h
			own = &v
		}
	}
	if !chainSeen && len(payload.Protocols) > 0 {
		chainSeen = true
	}

	if own == nil && !chainSeen {
		return model.SourceResult{}, model.NewFetchError(model.ErrNotFound,
			fmt.Errorf("chain overview for %s had no usable protocols", entity.Chain))
	}

	result := model.NewSourceResult(l.Name())
	if own != nil {
		result.Set(model.FieldVolume24h, *own)
	}
	if chainSeen {
		result.Set(model.FieldChainVolume24h, chainTotal)
	}
	return result, nil
}
