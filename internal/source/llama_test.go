package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexpulse/internal/model"
)

func TestLlamaTVLSimpleNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tvl/blackhole", r.URL.Path)
		w.Write([]byte(`12500000.5`))
	}))
	defer srv.Close()

	l := &LlamaTVL{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 12500000.5, result.Fields[model.FieldTVL])
}

func TestLlamaTVLProtocolFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tvl/blackhole":
			w.Write([]byte(`{"message":"slug not found"}`))
		case "/protocol/blackhole":
			w.Write([]byte(`{"tvl":[[1724800000,1000000],[1724886400,2000000]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := &LlamaTVL{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 2000000.0, result.Fields[model.FieldTVL])
}

func TestLlamaTVLProtocolDictPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tvl/blackhole":
			w.Write([]byte(`{"nope":true}`))
		default:
			w.Write([]byte(`{"tvl":[{"date":1724886400,"totalLiquidityUSD":3300000}]}`))
		}
	}))
	defer srv.Close()

	l := &LlamaTVL{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 3300000.0, result.Fields[model.FieldTVL])
}

func TestLlamaTVLMissingSlug(t *testing.T) {
	l := NewLlamaTVL(nil)
	_, err := l.Fetch(context.Background(), model.Entity{ID: "x", Name: "X"})
	require.Error(t, err)
	assert.Equal(t, model.ErrNotFound, model.KindOf(err))
}

func TestLlamaFeesSumsSlugs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/summary/fees/blackhole-amm":
			w.Write([]byte(`{"total24h":1000,"total7d":7000}`))
		case "/summary/fees/blackhole-clmm":
			w.Write([]byte(`{"total24h":500,"total7d":3500,"revenue24h":200}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := &LlamaFees{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, result.Fields[model.FieldFees24h])
	assert.Equal(t, 10500.0, result.Fields[model.FieldFees7d])
	assert.Equal(t, 200.0, result.Fields[model.FieldRevenue24h])
	_, ok := result.Fields[model.FieldRevenue7d]
	assert.False(t, ok)
}

func TestLlamaFeesPartialSlugFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/summary/fees/blackhole-amm" {
			w.Write([]byte(`{"total24h":1000}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := &LlamaFees{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, result.Fields[model.FieldFees24h])
}

func TestLlamaIncentivesDirectTotals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bribes24hUsd":4200,"bribes7dUsd":29000}`))
	}))
	defer srv.Close()

	l := &LlamaIncentives{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 4200.0, result.Fields[model.FieldBribes24h])
	assert.Equal(t, 29000.0, result.Fields[model.FieldBribes7d])
}

func TestLlamaIncentivesEntryList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"type":"bribe","valueUsd":100,"window":"24h"},
			{"type":"bribe","valueUsd":50,"window":"24h"},
			{"type":"bribe","valueUsd":900,"window":"7d"},
			{"type":"emission","valueUsd":9999,"window":"24h"}
		]}`))
	}))
	defer srv.Close()

	l := &LlamaIncentives{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 150.0, result.Fields[model.FieldBribes24h])
	assert.Equal(t, 900.0, result.Fields[model.FieldBribes7d])
}

func TestLlamaIncentivesUnknownShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"something":"else"}`))
	}))
	defer srv.Close()

	l := &LlamaIncentives{client: srv.Client(), baseURL: srv.URL}
	_, err := l.Fetch(context.Background(), testEntity)
	require.Error(t, err)
	assert.Equal(t, model.ErrNotFound, model.KindOf(err))
}

func TestLlamaChainOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total24h":10000000,"protocols":[
			{"name":"Blackhole","total24h":1200000},
			{"name":"Trader Joe","total24h":8800000}
		]}`))
	}))
	defer srv.Close()

	l := &LlamaChain{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 1200000.0, result.Fields[model.FieldVolume24h])
	assert.Equal(t, 10000000.0, result.Fields[model.FieldChainVolume24h])
}

func TestLlamaChainSumsWhenTotalMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"protocols":[
			{"name":"BlackHole DEX","total24h":1200000},
			{"name":"Pharaoh","total24h":300000}
		]}`))
	}))
	defer srv.Close()

	l := &LlamaChain{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	assert.Equal(t, 1200000.0, result.Fields[model.FieldVolume24h])
	assert.Equal(t, 1500000.0, result.Fields[model.FieldChainVolume24h])
}

func TestLlamaChainEntityAbsentStillReportsChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total24h":5000000,"protocols":[{"name":"Pharaoh","total24h":5000000}]}`))
	}))
	defer srv.Close()

	l := &LlamaChain{client: srv.Client(), baseURL: srv.URL}
	result, err := l.Fetch(context.Background(), testEntity)
	require.NoError(t, err)
	_, ok := result.Fields[model.FieldVolume24h]
	assert.False(t, ok)
	assert.Equal(t, 5000000.0, result.Fields[model.FieldChainVolume24h])
}
