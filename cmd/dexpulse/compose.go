package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexpulse/internal/config"
	"dexpulse/internal/report"
	"dexpulse/internal/store"
)

// runCompose re-renders the report for each configured entity from the
// latest stored row. No source is contacted and nothing is published.
func runCompose(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Entities) == 0 {
		return fmt.Errorf("at least one entity is required")
	}

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var errs []error
	for _, entity := range cfg.Entities {
		rows, err := st.Series(ctx, entity.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", entity.ID, err))
			continue
		}

		latest := store.Latest(rows)
		if latest == nil {
			errs = append(errs, fmt.Errorf("entity %s: no stored rows", entity.ID))
			continue
		}
		previous := store.Previous(rows, latest.Date)

		text, err := report.Compose(*latest, previous, report.Options{
			EntityName:     entity.Name,
			Budget:         cfg.Budget,
			ReservedSuffix: cfg.Suffix,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", entity.ID, err))
			continue
		}

		logger.Info("report composed",
			zap.String("entity", entity.ID),
			zap.String("date", latest.Date),
		)
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}

	return errors.Join(errs...)
}
