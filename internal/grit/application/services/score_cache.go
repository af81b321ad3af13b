package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the score of a scope from scratch.
type ComputeFunc func(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, error)

// Scoreboard mirrors the latest scores for presentation. It is best effort.
type Scoreboard interface {
	Publish(ctx context.Context, score domain.Score) error
	Remove(ctx context.Context, userID uuid.UUID, scope domain.Scope) error
}

// ScoreCacheConfig tunes the score cache.
type ScoreCacheConfig struct {
	// WarmConcurrency bounds parallel recomputation in Warm.
	WarmConcurrency int
}

// DefaultScoreCacheConfig returns the default score cache settings.
func DefaultScoreCacheConfig() ScoreCacheConfig {
	return ScoreCacheConfig{WarmConcurrency: 4}
}

type cacheKey struct {
	userID uuid.UUID
	scope  domain.Scope
}

type cacheEntry struct {
	score   domain.Score
	version uint64
}

// ScoreCache memoizes scores per (user, scope). Each key carries a version
// that every invalidation bumps; a value is only served when it was computed
// under the key's current version. Scopes are independent keys.
type ScoreCache struct {
	compute ComputeFunc
	store   domain.ScoreRepository
	board   Scoreboard
	config  ScoreCacheConfig
	metrics observability.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	versions map[cacheKey]uint64
	entries  map[cacheKey]cacheEntry
	writers  map[cacheKey]*sync.Mutex
	group    singleflight.Group
}

// NewScoreCache creates a cache over the given compute function. store
// receives every recomputed score; board may be nil.
func NewScoreCache(
	compute ComputeFunc,
	store domain.ScoreRepository,
	board Scoreboard,
	config ScoreCacheConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *ScoreCache {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.WarmConcurrency <= 0 {
		config.WarmConcurrency = 1
	}
	return &ScoreCache{
		compute:  compute,
		store:    store,
		board:    board,
		config:   config,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		versions: make(map[cacheKey]uint64),
		entries:  make(map[cacheKey]cacheEntry),
		writers:  make(map[cacheKey]*sync.Mutex),
	}
}

// Get returns the score of a scope and the version it was computed under.
// A miss recomputes; concurrent misses of the same key and version share one
// computation. Failures are returned as is and never replaced by an older value.
func (c *ScoreCache) Get(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, uint64, error) {
	key := cacheKey{userID: userID, scope: scope}

	entry, version, err := c.lookup(key)
	if err == nil {
		c.metrics.Counter(observability.MetricCacheHit, 1, scopeTag(scope))
		return entry.score, version, nil
	}
	c.metrics.Counter(observability.MetricCacheMiss, 1, scopeTag(scope))

	flightKey := fmt.Sprintf("%s/%s@%d", userID, scope, version)
	// the flight outlives any single caller; each caller stops waiting on its
	// own context
	flight := c.group.DoChan(flightKey, func() (any, error) {
		// double-check: a flight for this version may have just finished
		if entry, current, err := c.lookup(key); err == nil && current == version {
			return entry.score, nil
		}
		return c.recompute(context.WithoutCancel(ctx), key, version)
	})

	select {
	case <-ctx.Done():
		return domain.Score{}, version, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return domain.Score{}, version, res.Err
		}
		return res.Val.(domain.Score), version, nil
	}
}

// lookup returns the current entry or ErrStaleCache with the version a
// recomputation must be stored under.
func (c *ScoreCache) lookup(key cacheKey) (cacheEntry, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	version := c.versions[key]
	entry, ok := c.entries[key]
	if !ok || entry.version != version {
		return cacheEntry{}, version, ErrStaleCache
	}
	return entry, version, nil
}

// recompute computes a scope and, while its version is still current,
// persists it, caches it and mirrors it to the scoreboard. Writes of one key
// are serialized, so an older version never lands after a newer one.
func (c *ScoreCache) recompute(ctx context.Context, key cacheKey, version uint64) (domain.Score, error) {
	start := time.Now()

	score, err := c.compute(ctx, key.userID, key.scope)
	if err != nil {
		c.logger.WarnContext(ctx, "score recompute failed",
			"user_id", key.userID,
			"scope", key.scope,
			"error", err,
		)
		return domain.Score{}, err
	}
	score.UserID = key.userID
	score.Scope = key.scope
	score.Version = version
	score.ComputedAt = c.now()

	stored, err := c.write(ctx, key, score)
	if err != nil {
		return domain.Score{}, err
	}

	c.metrics.Counter(observability.MetricScoreRecomputed, 1, scopeTag(key.scope))
	c.metrics.Histogram(observability.MetricScoreComposite, score.Composite)
	c.metrics.Timing(observability.MetricScoreDuration, time.Since(start))

	c.logger.DebugContext(ctx, "score recomputed",
		"user_id", key.userID,
		"scope", key.scope,
		"version", version,
		"composite", score.Composite,
		"stored", stored,
	)
	return score, nil
}

// write stores a score computed under score.Version. It reports false and
// writes nothing when the key was invalidated in the meantime.
func (c *ScoreCache) write(ctx context.Context, key cacheKey, score domain.Score) (bool, error) {
	w := c.writer(key)
	w.Lock()
	defer w.Unlock()

	if !c.isCurrent(key, score.Version) {
		return false, nil
	}

	if c.store != nil {
		if err := c.store.PersistScore(ctx, score); err != nil {
			return false, storeErr("persist score", err)
		}
	}

	c.mu.Lock()
	stored := c.versions[key] == score.Version
	if stored {
		c.entries[key] = cacheEntry{score: score, version: score.Version}
	}
	c.mu.Unlock()

	if !stored || c.board == nil {
		return stored, nil
	}

	if err := c.board.Publish(ctx, score); err != nil {
		c.logger.WarnContext(ctx, "scoreboard publish failed", "scope", key.scope, "error", err)
		c.metrics.Counter(observability.MetricScoreboardErrors, 1, observability.T("op", "publish"))
	}
	// an invalidation during Publish has already removed the key, which the
	// publish may have recreated
	if !c.isCurrent(key, score.Version) {
		c.removeFromBoard(ctx, key)
	}
	return stored, nil
}

func (c *ScoreCache) writer(key cacheKey) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.writers[key]
	if !ok {
		w = &sync.Mutex{}
		c.writers[key] = w
	}
	return w
}

func (c *ScoreCache) isCurrent(key cacheKey, version uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key] == version
}

// Invalidate bumps the version of one scope so the next Get recomputes.
// Other scopes of the same user are not touched.
func (c *ScoreCache) Invalidate(ctx context.Context, userID uuid.UUID, scope domain.Scope) {
	key := cacheKey{userID: userID, scope: scope}

	c.mu.Lock()
	c.versions[key]++
	delete(c.entries, key)
	c.mu.Unlock()

	c.removeFromBoard(ctx, key)
}

func (c *ScoreCache) removeFromBoard(ctx context.Context, key cacheKey) {
	if c.board == nil {
		return
	}
	if err := c.board.Remove(ctx, key.userID, key.scope); err != nil {
		c.logger.WarnContext(ctx, "scoreboard remove failed", "scope", key.scope, "error", err)
		c.metrics.Counter(observability.MetricScoreboardErrors, 1, observability.T("op", "remove"))
	}
}

// Warm computes the given scopes ahead of a batch of reads.
func (c *ScoreCache) Warm(ctx context.Context, userID uuid.UUID, scopes []domain.Scope) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.WarmConcurrency)

	for _, scope := range scopes {
		g.Go(func() error {
			_, _, err := c.Get(gctx, userID, scope)
			return err
		})
	}
	return g.Wait()
}

// Version returns the current version of a scope.
func (c *ScoreCache) Version(userID uuid.UUID, scope domain.Scope) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[cacheKey{userID: userID, scope: scope}]
}

func scopeTag(scope domain.Scope) observability.Tag {
	if scope.IsAll() {
		return observability.T("scope", "all")
	}
	return observability.T("scope", "task")
}
