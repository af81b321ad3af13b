package observability

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the state of one dependency or of the whole process.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult is the outcome of one check.
type HealthCheckResult struct {
	Status    HealthStatus  `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthChecker checks one dependency.
type HealthChecker func(ctx context.Context) HealthCheckResult

// OverallHealth summarizes a run of every check.
type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// HealthRegistry holds the checks of the backing services.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry creates an empty registry. With no checks the process
// reports healthy.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds or replaces the check for name.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Check runs every check concurrently.
func (r *HealthRegistry) Check(ctx context.Context) map[string]HealthCheckResult {
	r.mu.RLock()
	checkers := make(map[string]HealthChecker, len(r.checkers))
	for name, checker := range r.checkers {
		checkers[name] = checker
	}
	r.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]HealthCheckResult, len(checkers))
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker HealthChecker) {
			defer wg.Done()
			start := time.Now()
			result := checker(ctx)
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()
	return results
}

// GetOverallHealth runs every check. Any unhealthy check makes the whole
// unhealthy; otherwise any degraded check makes it degraded.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	checks := r.Check(ctx)
	status := HealthStatusHealthy
	for _, result := range checks {
		switch result.Status {
		case HealthStatusUnhealthy:
			status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
		}
	}
	return OverallHealth{Status: status, Timestamp: time.Now(), Checks: checks}
}

// pingChecker reports failures of ping with the given status.
func pingChecker(component string, failure HealthStatus, ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failure, Message: component + " unreachable: " + err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy, Message: component + " reachable"}
	}
}

// DatabaseHealthChecker checks the score store. Without it nothing can be
// scored, so a failure is unhealthy.
func DatabaseHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return pingChecker("database", HealthStatusUnhealthy, ping)
}

// RedisHealthChecker checks the scoreboard mirror. Scores are still served
// from the store when it is down.
func RedisHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return pingChecker("redis", HealthStatusDegraded, ping)
}

// RabbitMQHealthChecker checks the event broker.
func RabbitMQHealthChecker(check func(ctx context.Context) error) HealthChecker {
	return pingChecker("rabbitmq", HealthStatusDegraded, check)
}
