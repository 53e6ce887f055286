// Package pipeline orchestrates one batch run: fetch every configured source,
// reconcile into today's row, persist, compose, publish. Upstream failures
// are diagnostics, never run failures; whatever is known gets published.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dexpulse/internal/model"
	"dexpulse/internal/publish"
	"dexpulse/internal/reconcile"
	"dexpulse/internal/report"
	"dexpulse/internal/source"
	"dexpulse/internal/store"
)

const defaultFetchConcurrency = 4

// Config holds the per-run settings resolved from static configuration.
type Config struct {
	Entities         []model.Entity
	Priorities       map[model.MetricField][]string
	Budget           int
	ReservedSuffix   string
	RunTimeout       time.Duration
	FetchConcurrency int
	Location         *time.Location
}

// Runner executes the pipeline for every configured entity.
type Runner struct {
	cfg       Config
	adapters  map[string]source.Adapter
	store     store.Store
	publisher publish.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewRunner(cfg Config, adapters []source.Adapter, st store.Store, pub publish.Publisher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]source.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Runner{
		cfg:       cfg,
		adapters:  byName,
		store:     st,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes all entities. A failed entity does not stop the others; the
// joined error reports every entity that could not complete.
func (r *Runner) Run(ctx context.Context) error {
	var errs []error
	for _, entity := range r.cfg.Entities {
		if err := r.runEntity(ctx, entity); err != nil {
			r.logger.Error("entity run failed", zap.String("entity", entity.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("entity %s: %w", entity.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) location() *time.Location {
	if r.cfg.Location != nil {
		return r.cfg.Location
	}
	return time.UTC
}

func (r *Runner) runEntity(ctx context.Context, entity model.Entity) error {
	date := r.now().In(r.location()).Format(model.DateLayout)

	// The wall-clock budget bounds the fetch stage only: once it expires,
	// pending sources are abandoned but the run still persists, composes,
	// and publishes whatever completed.
	fetchCtx := ctx
	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}
	outcomes := r.fetchAll(fetchCtx, entity)

	successes := 0
	for name, outcome := range outcomes {
		if outcome.Failed() {
			r.logger.Warn("source failed",
				zap.String("entity", entity.ID),
				zap.String("adapter", name),
				zap.String("kind", string(model.KindOf(outcome.Err))),
				zap.Error(outcome.Err))
			continue
		}
		successes++
		r.logger.Info("source ok",
			zap.String("entity", entity.ID),
			zap.String("adapter", name),
			zap.Int("fields", len(outcome.Result.Fields)))
	}

	// Unreadable state aborts before composing: publishing numbers derived
	// from unknown state is worse than skipping a day.
	series, err := r.store.Series(ctx, entity.ID)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}

	row := reconcile.Reconcile(entity, date, r.cfg.Priorities, outcomes, store.Latest(series))

	updated, err := r.store.Upsert(ctx, row)
	if err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}

	latest := store.Row(updated, date)
	if latest == nil {
		return fmt.Errorf("upsert did not return row for %s", date)
	}
	previous := store.Previous(updated, date)

	opts := report.Options{
		EntityName:     entity.Name,
		Budget:         r.cfg.Budget,
		ReservedSuffix: r.cfg.ReservedSuffix,
	}
	text, err := report.Compose(*latest, previous, opts)
	if err != nil {
		return err
	}

	if successes == 0 {
		r.logger.Warn("no live sources this run, publishing known state only",
			zap.String("entity", entity.ID), zap.String("date", date))
	} else {
		r.logger.Info("run reconciled",
			zap.String("entity", entity.ID),
			zap.String("date", date),
			zap.Int("sources_ok", successes),
			zap.Int("fields", len(latest.Fields)))
	}

	return r.deliver(ctx, entity, text, *latest, previous, opts)
}

// fetchAll runs the adapters named by the priority lists concurrently under a
// bounded pool. Ordering carries no meaning here; preference is applied later
// by the reconciler. Adapters still pending when the run deadline passes are
// recorded as unreachable and the run moves on.
func (r *Runner) fetchAll(ctx context.Context, entity model.Entity) map[string]reconcile.Outcome {
	names := make([]string, 0, len(r.adapters))
	seen := make(map[string]bool)
	for _, list := range r.cfg.Priorities {
		for _, name := range list {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := r.adapters[name]; !ok {
				r.logger.Warn("priority list names unknown adapter", zap.String("adapter", name))
				continue
			}
			names = append(names, name)
		}
	}

	concurrency := r.cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make(map[string]reconcile.Outcome, len(names))
		sem      = make(chan struct{}, concurrency)
	)

	for _, name := range names {
		adapter := r.adapters[name]
		wg.Add(1)
		go func(name string, adapter source.Adapter) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			result, err := adapter.Fetch(ctx, entity)
			mu.Lock()
			outcomes[name] = reconcile.Outcome{Result: result, Err: err}
			mu.Unlock()
		}(name, adapter)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	snapshot := make(map[string]reconcile.Outcome, len(names))
	for name, outcome := range outcomes {
		snapshot[name] = outcome
	}
	for _, name := range names {
		if _, ok := snapshot[name]; !ok {
			snapshot[name] = reconcile.Outcome{
				Err: model.NewFetchError(model.ErrUnreachable, fmt.Errorf("fetch aborted: %w", ctx.Err())),
			}
		}
	}
	return snapshot
}

// deliver publishes the report. On a duplicate-content rejection the report
// is recomposed once with a short time tag appended to the reserved suffix,
// still under the same budget, and retried.
func (r *Runner) deliver(ctx context.Context, entity model.Entity, text string, latest model.MetricRow, previous *model.MetricRow, opts report.Options) error {
	err := r.publisher.Publish(ctx, text)
	if err == nil {
		r.logger.Info("published",
			zap.String("entity", entity.ID),
			zap.String("publisher", r.publisher.Name()),
			zap.Int("chars", len([]rune(text))))
		return nil
	}

	if publish.KindOf(err) != publish.DuplicateContent {
		return fmt.Errorf("publish: %w", err)
	}

	r.logger.Warn("duplicate content rejected, retrying with uniqueness tag",
		zap.String("entity", entity.ID))

	opts.ReservedSuffix = opts.ReservedSuffix + "\n⏱ " + r.now().In(r.location()).Format("15:04")
	retryText, composeErr := report.Compose(latest, previous, opts)
	if composeErr != nil {
		return fmt.Errorf("publish: %w (uniqueness retry infeasible: %v)", err, composeErr)
	}
	if retryErr := r.publisher.Publish(ctx, retryText); retryErr != nil {
		return fmt.Errorf("publish retry: %w", retryErr)
	}

	r.logger.Info("published on retry", zap.String("entity", entity.ID))
	return nil
}
