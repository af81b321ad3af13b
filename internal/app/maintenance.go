package app

import (
	"context"
	"time"

	"github.com/felixgeelhaar/gritline/pkg/observability"
)

// dailyCapWindow covers every record the daily cap can count: the cap reads
// back to the start of the current UTC day.
const dailyCapWindow = 24 * time.Hour

// PruneTriggerRecords deletes trigger records older than the configured
// retention. Records inside the cooldown window or the current day are
// always kept.
func (c *Container) PruneTriggerRecords(ctx context.Context, now time.Time) (int64, error) {
	if c.Config.RecordRetention <= 0 {
		return 0, nil
	}
	retention := max(c.Config.RecordRetention, c.Tuning.Scheduler.Cooldown, dailyCapWindow)
	deleted, err := c.Store.PruneTriggerRecords(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	c.Metrics.Counter(observability.MetricRecordsPruned, deleted)
	return deleted, nil
}

// RunPruner prunes trigger records every interval until ctx is done.
func (c *Container) RunPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := c.PruneTriggerRecords(ctx, now)
			if err != nil {
				c.Logger.Error("trigger record cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				c.Logger.Info("trigger record cleanup completed", "deleted", deleted)
			}
		}
	}
}
