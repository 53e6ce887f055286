package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexpulse/internal/model"
)

func newTestJSONL(t *testing.T) *JSONL {
	t.Helper()
	return NewJSONL(filepath.Join(t.TempDir(), "metrics.jsonl"))
}

func TestJSONLUpsertIdempotent(t *testing.T) {
	s := newTestJSONL(t)
	ctx := context.Background()

	row := model.NewMetricRow("blackhole", "2025-08-30")
	row.Set(model.FieldVolume24h, 1200000)
	row.Set(model.FieldTVL, 5000000)

	_, err := s.Upsert(ctx, row)
	require.NoError(t, err)
	first, err := os.ReadFile(s.path)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, row)
	require.NoError(t, err)
	second, err := os.ReadFile(s.path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated upsert must leave the file byte-for-byte identical")
}

func TestJSONLUpsertRecomputesRolling(t *testing.T) {
	s := newTestJSONL(t)
	ctx := context.Background()

	day1 := model.NewMetricRow("blackhole", "2025-08-29")
	day1.Set(model.FieldVolume24h, 1200000)
	_, err := s.Upsert(ctx, day1)
	require.NoError(t, err)

	day2 := model.NewMetricRow("blackhole", "2025-08-30")
	day2.Set(model.FieldVolume24h, 900000)
	series, err := s.Upsert(ctx, day2)
	require.NoError(t, err)

	require.Len(t, series, 2)
	require.NotNil(t, series[1].Rolling7dVolume)
	assert.Equal(t, 1050000.0, *series[1].Rolling7dVolume)
}

func TestJSONLSeriesRoundTrip(t *testing.T) {
	s := newTestJSONL(t)
	ctx := context.Background()

	row := model.NewMetricRow("blackhole", "2025-08-30")
	row.Set(model.FieldFees24h, 1500.5)
	_, err := s.Upsert(ctx, row)
	require.NoError(t, err)

	series, err := s.Series(ctx, "blackhole")
	require.NoError(t, err)
	require.Len(t, series, 1)
	v, ok := series[0].Value(model.FieldFees24h)
	require.True(t, ok)
	assert.Equal(t, 1500.5, v)

	other, err := s.Series(ctx, "pharaoh")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJSONLCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"date\": \"2025-08-30\"\nnot json\n"), 0o644))

	s := NewJSONL(path)
	_, err := s.Series(context.Background(), "blackhole")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestJSONLMissingFileIsEmpty(t *testing.T) {
	s := newTestJSONL(t)
	series, err := s.Series(context.Background(), "blackhole")
	require.NoError(t, err)
	assert.Empty(t, series)
}
