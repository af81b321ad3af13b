package observability

import (
	"strings"
	"sync"
	"time"
)

// Metrics records counters, value distributions and durations.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Histogram(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric.
type Tag struct {
	Key   string
	Value string
}

// T creates a Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Histogram(string, float64, ...Tag)    {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// InMemoryMetrics keeps metrics in process. The worker exposes its counters
// on /healthz and tests read them back.
type InMemoryMetrics struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
	timings    map[string][]time.Duration
}

// NewInMemoryMetrics creates an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]int64),
		histograms: make(map[string][]float64),
		timings:    make(map[string][]time.Duration),
	}
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	m.counters[metricKey(name, tags)] += value
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Histogram(name string, value float64, tags ...Tag) {
	key := metricKey(name, tags)
	m.mu.Lock()
	m.histograms[key] = append(m.histograms[key], value)
	m.mu.Unlock()
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	key := metricKey(name, tags)
	m.mu.Lock()
	m.timings[key] = append(m.timings[key], duration)
	m.mu.Unlock()
}

// GetCounter returns a counter value. Tags must be given in recording order.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[metricKey(name, tags)]
}

// GetHistogram returns a copy of the recorded values.
func (m *InMemoryMetrics) GetHistogram(name string, tags ...Tag) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.histograms[metricKey(name, tags)]...)
}

// GetTimings returns a copy of the recorded durations.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]time.Duration(nil), m.timings[metricKey(name, tags)]...)
}

// Counters returns a copy of every counter, keyed by name and tags.
func (m *InMemoryMetrics) Counters() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// metricKey renders name:k1=v1:k2=v2.
func metricKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, t := range tags {
		b.WriteByte(':')
		b.WriteString(t.Key)
		b.WriteByte('=')
		b.WriteString(t.Value)
	}
	return b.String()
}

const (
	MetricOperationTotal    = "gritline.operation.total"
	MetricOperationDuration = "gritline.operation.duration"
	MetricOperationErrors   = "gritline.operation.errors"

	MetricInstancesCreated   = "gritline.instances.created"
	MetricInstancesCompleted = "gritline.instances.completed"
	MetricInstancesDeleted   = "gritline.instances.deleted"

	MetricCacheHit        = "gritline.cache.hit"
	MetricCacheMiss       = "gritline.cache.miss"
	MetricScoreRecomputed = "gritline.score.recomputed"
	MetricScoreComposite  = "gritline.score.composite"
	MetricScoreDuration   = "gritline.score.duration"

	MetricTriggerFired     = "gritline.trigger.fired"
	MetricTriggerSkipped   = "gritline.trigger.skipped"
	MetricTriggerResponded = "gritline.trigger.responded"
	MetricRecordsPruned    = "gritline.trigger.records_pruned"

	MetricStoreUnavailable = "gritline.store.unavailable"
	MetricScoreboardErrors = "gritline.scoreboard.errors"

	MetricEventsPublished = "gritline.events.published"
	MetricEventsConsumed  = "gritline.events.consumed"
)
