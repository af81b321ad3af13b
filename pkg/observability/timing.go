package observability

import (
	"log/slog"
	"time"
)

// Timer measures one run of a named operation.
type Timer struct {
	operation string
	start     time.Time
	metrics   Metrics
	logger    *slog.Logger
}

// StartTimer starts timing operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

// WithMetrics records duration, count and failures on stop.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// WithLogger logs failures on stop. Successful runs log at debug.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// Stop ends a successful run.
func (t *Timer) Stop() time.Duration {
	return t.StopWithError(nil)
}

// StopWithError ends the run. A non-nil err counts as a failure.
func (t *Timer) StopWithError(err error) time.Duration {
	elapsed := time.Since(t.start)
	op := T("operation", t.operation)

	if t.metrics != nil {
		t.metrics.Timing(MetricOperationDuration, elapsed, op)
		t.metrics.Counter(MetricOperationTotal, 1, op)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, op)
		}
	}
	if t.logger != nil {
		if err != nil {
			t.logger.Error("operation failed", "operation", t.operation, "duration_ms", elapsed.Milliseconds(), "error", err)
		} else {
			t.logger.Debug("operation completed", "operation", t.operation, "duration_ms", elapsed.Milliseconds())
		}
	}
	return elapsed
}
