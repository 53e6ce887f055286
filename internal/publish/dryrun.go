package publish

import (
	"context"

	"go.uber.org/zap"
)

// DryRun logs the report instead of delivering it.
type DryRun struct {
	logger *zap.Logger
}

func NewDryRun(logger *zap.Logger) *DryRun {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DryRun{logger: logger}
}

func (d *DryRun) Name() string { return "dry-run" }

func (d *DryRun) Publish(ctx context.Context, text string) error {
	d.logger.Info("dry-run publish", zap.Int("chars", len([]rune(text))), zap.String("report", text))
	return nil
}
