package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartSweep runs Backfill on the given cron schedule until the returned cron is stopped.
func StartSweep(ctx context.Context, schedule string, idx *Indexer) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		res, err := idx.Backfill(ctx)
		switch {
		case errors.Is(err, ErrBackfillRunning):
			slog.Debug("embedding sweep skipped, backfill in progress")
		case err != nil:
			slog.Error("embedding sweep failed", "error", err)
		case res.Total > 0:
			slog.Info("embedding sweep finished", "embedded", res.Embedded, "total", res.Total, "errors", len(res.Errors))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	slog.Info("embedding sweep scheduled", "schedule", schedule)
	return c, nil
}
