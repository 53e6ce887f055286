package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexpulse/internal/config"
	"dexpulse/internal/pipeline"
	"dexpulse/internal/publish"
	"dexpulse/internal/source"
	"dexpulse/internal/store"
	"dexpulse/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "dexpulse",
		Short:        "Daily DEX metrics pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, reconcile, persist, and publish today's metrics",
		RunE:  runPipeline,
	}

	runCmd.Flags().String("csv-path", "./data/metrics.csv", "CSV store path")
	runCmd.Flags().String("jsonl-path", "", "JSONL store path (overrides the CSV store)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides file stores)")
	runCmd.Flags().Int("budget", 280, "report character budget")
	runCmd.Flags().String("suffix", "", "reserved suffix appended to every report")
	runCmd.Flags().String("publisher", "file", "publisher kind (file, webhook, dry-run)")
	runCmd.Flags().String("publish-path", "./data/daily_summary.txt", "report output path for the file publisher")
	runCmd.Flags().String("webhook-url", "", "webhook publisher endpoint")
	runCmd.Flags().String("webhook-token", "", "webhook bearer token")
	runCmd.Flags().String("dump-dir", "", "raw payload dump directory (empty disables dumps)")
	runCmd.Flags().Duration("run-timeout", 2*time.Minute, "wall-clock budget for the fetch stage")
	runCmd.Flags().Int("fetch-concurrency", 4, "max concurrent source fetches")
	runCmd.Flags().String("timezone", "UTC", "timezone for daily row keys")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	composeCmd := &cobra.Command{
		Use:   "compose",
		Short: "Render the report from stored state without fetching",
		RunE:  runCompose,
	}

	composeCmd.Flags().String("csv-path", "./data/metrics.csv", "CSV store path")
	composeCmd.Flags().String("jsonl-path", "", "JSONL store path (overrides the CSV store)")
	composeCmd.Flags().String("pg-dsn", "", "Postgres DSN (overrides file stores)")
	composeCmd.Flags().Int("budget", 280, "report character budget")
	composeCmd.Flags().String("suffix", "", "reserved suffix appended to every report")
	composeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(composeCmd)

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an already-composed report file",
		RunE:  runPublish,
	}

	publishCmd.Flags().String("in", "", "composed report file (defaults to publish-path)")
	publishCmd.Flags().Int("budget", 280, "report character budget")
	publishCmd.Flags().String("publisher", "dry-run", "publisher kind (file, webhook, dry-run)")
	publishCmd.Flags().String("publish-path", "./data/daily_summary.txt", "report output path for the file publisher")
	publishCmd.Flags().String("webhook-url", "", "webhook publisher endpoint")
	publishCmd.Flags().String("webhook-token", "", "webhook bearer token")
	publishCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(publishCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, _ []string) error {
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

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	pub, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(pipeline.Config{
		Entities:         cfg.Entities,
		Priorities:       cfg.Priorities,
		Budget:           cfg.Budget,
		ReservedSuffix:   cfg.Suffix,
		RunTimeout:       cfg.RunTimeout,
		FetchConcurrency: cfg.FetchConcurrency,
		Location:         loc,
	}, buildAdapters(cfg), st, pub, logger)

	logger.Info("pipeline start",
		zap.Int("entities", len(cfg.Entities)),
		zap.Int("budget", cfg.Budget),
		zap.String("publisher", pub.Name()),
		zap.Duration("run_timeout", cfg.RunTimeout),
	)

	return runner.Run(ctx)
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.PGDSN != "" {
		s, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return s, nil
	}
	if cfg.JSONLPath != "" {
		return store.NewJSONL(cfg.JSONLPath), nil
	}
	if cfg.CSVPath == "" {
		return nil, fmt.Errorf("store location is required (csv-path, jsonl-path, or pg-dsn)")
	}
	return store.NewCSV(cfg.CSVPath), nil
}

func buildAdapters(cfg config.Config) []source.Adapter {
	sink := source.NewRawSink(cfg.DumpDir)
	return []source.Adapter{
		source.NewDexScreener(sink),
		source.NewLlamaTVL(sink),
		source.NewLlamaFees(sink),
		source.NewLlamaIncentives(sink),
		source.NewLlamaChain(sink),
	}
}

func buildPublisher(cfg config.Config, logger *zap.Logger) (publish.Publisher, error) {
	switch cfg.Publisher {
	case "file":
		if cfg.PublishPath == "" {
			return nil, fmt.Errorf("publish-path is required for the file publisher")
		}
		return publish.NewFile(cfg.PublishPath), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook-url is required for the webhook publisher")
		}
		return publish.NewWebhook(cfg.WebhookURL, cfg.WebhookToken), nil
	case "dry-run":
		return publish.NewDryRun(logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher: %s", cfg.Publisher)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
