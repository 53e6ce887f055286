// Package postgres is the pgx-backed store. One shared table keyed by
// (entity_id, date); rolling aggregates are recomputed in Go after every
// upsert and written back for the whole entity series.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dexpulse/internal/model"
	"dexpulse/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_metrics (
	entity_id          text NOT NULL,
	date               date NOT NULL,
	volume_24h         double precision,
	tvl                double precision,
	fees_24h           double precision,
	fees_7d            double precision,
	revenue_24h        double precision,
	revenue_7d         double precision,
	bribes_24h         double precision,
	bribes_7d          double precision,
	chain_volume_24h   double precision,
	rolling_7d_volume  double precision,
	created_at         timestamptz NOT NULL DEFAULT now(),
	updated_at         timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (entity_id, date)
)`

// Store provides Postgres persistence for the daily metric series.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Series(ctx context.Context, entityID string) ([]model.MetricRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date::text, entity_id,
			volume_24h, tvl, fees_24h, fees_7d,
			revenue_24h, revenue_7d, bribes_24h, bribes_7d,
			chain_volume_24h, rolling_7d_volume
		FROM daily_metrics
		WHERE entity_id = $1
		ORDER BY date
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: query series: %v", store.ErrCorrupt, err)
	}
	defer rows.Close()

	var series []model.MetricRow
	for rows.Next() {
		var (
			date, entity string
			values       [9]*float64
			rolling      *float64
		)
		if err := rows.Scan(&date, &entity,
			&values[0], &values[1], &values[2], &values[3],
			&values[4], &values[5], &values[6], &values[7],
			&values[8], &rolling); err != nil {
			return nil, fmt.Errorf("%w: scan series row: %v", store.ErrCorrupt, err)
		}

		row := model.NewMetricRow(entity, date)
		for i, field := range model.AllFields {
			if values[i] != nil {
				row.Set(field, *values[i])
			}
		}
		row.Rolling7dVolume = rolling
		series = append(series, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read series: %v", store.ErrCorrupt, err)
	}
	return series, nil
}

func (s *Store) Upsert(ctx context.Context, row model.MetricRow) ([]model.MetricRow, error) {
	args := make([]any, 0, 2+len(model.AllFields))
	args = append(args, row.EntityID, row.Date)
	for _, field := range model.AllFields {
		if v, ok := row.Value(field); ok {
			args = append(args, v)
		} else {
			args = append(args, nil)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_metrics (
			entity_id, date,
			volume_24h, tvl, fees_24h, fees_7d,
			revenue_24h, revenue_7d, bribes_24h, bribes_7d,
			chain_volume_24h, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
		ON CONFLICT (entity_id, date)
		DO UPDATE SET
			volume_24h = EXCLUDED.volume_24h,
			tvl = EXCLUDED.tvl,
			fees_24h = EXCLUDED.fees_24h,
			fees_7d = EXCLUDED.fees_7d,
			revenue_24h = EXCLUDED.revenue_24h,
			revenue_7d = EXCLUDED.revenue_7d,
			bribes_24h = EXCLUDED.bribes_24h,
			bribes_7d = EXCLUDED.bribes_7d,
			chain_volume_24h = EXCLUDED.chain_volume_24h,
			updated_at = now()
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("upsert row: %w", err)
	}

	series, err := s.Series(ctx, row.EntityID)
	if err != nil {
		return nil, err
	}
	store.RecomputeRolling(series)

	batch := &pgx.Batch{}
	for _, r := range series {
		batch.Queue(`
			UPDATE daily_metrics
			SET rolling_7d_volume = $3
			WHERE entity_id = $1 AND date = $2
		`, r.EntityID, r.Date, r.Rolling7dVolume)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range series {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("update rolling aggregates: %w", err)
		}
	}

	return series, nil
}
