package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dexpulse/internal/config"
	"dexpulse/internal/publish"
)

// runPublish sends an already-composed report file through the configured
// publisher. Useful for re-sending after a transient outage without
// re-fetching sources.
func runPublish(cmd *cobra.Command, _ []string) error {
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

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = cfg.PublishPath
	}
	if in == "" {
		return fmt.Errorf("input file is required (--in or publish-path)")
	}

	raw, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	text := strings.TrimRight(string(raw), "\n")
	if text == "" {
		return fmt.Errorf("report file %s is empty", in)
	}
	if n := utf8.RuneCountInString(text); n > cfg.Budget {
		return fmt.Errorf("report is %d characters, budget is %d", n, cfg.Budget)
	}

	pub, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = pub.Publish(ctx, text)
	if err != nil && publish.KindOf(err) == publish.DuplicateContent {
		// Make the content unique and retry once, mirroring the pipeline's
		// duplicate handling.
		logger.Warn("duplicate content, retrying with timestamp", zap.String("publisher", pub.Name()))
		err = pub.Publish(ctx, retryWithTag(text, cfg.Budget, time.Now()))
	}
	if err != nil {
		return fmt.Errorf("publish via %s: %w", pub.Name(), err)
	}

	logger.Info("report published",
		zap.String("publisher", pub.Name()),
		zap.Int("chars", utf8.RuneCountInString(text)),
	)
	return nil
}

// retryWithTag appends a time tag to make a duplicate-rejected report unique,
// trimming the core first so the result still fits the budget.
func retryWithTag(text string, budget int, now time.Time) string {
	tag := "\n⏱ " + now.Format("15:04")
	room := budget - utf8.RuneCountInString(tag)
	if room < 0 {
		room = 0
	}
	runes := []rune(text)
	if len(runes) > room {
		runes = []rune(strings.TrimRight(string(runes[:room]), " \n"))
	}
	return string(runes) + tag
}
