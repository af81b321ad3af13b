// Package cache mirrors computed scores into Redis for display surfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultScoreTTL bounds how long a mirrored score survives without a refresh.
const DefaultScoreTTL = 24 * time.Hour

// ErrScoreNotMirrored is returned when the scoreboard holds no score for a scope.
var ErrScoreNotMirrored = errors.New("score not on scoreboard")

// RedisScoreboard keeps the latest score per (user, scope).
// Keys are namespaced: gritline:score:{user_id}:{scope}
type RedisScoreboard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScoreboard creates a scoreboard. A non-positive ttl uses DefaultScoreTTL.
func NewRedisScoreboard(client *redis.Client, ttl time.Duration) *RedisScoreboard {
	if ttl <= 0 {
		ttl = DefaultScoreTTL
	}
	return &RedisScoreboard{client: client, ttl: ttl}
}

// Key returns the Redis key of a scope.
func Key(userID uuid.UUID, scope domain.Scope) string {
	return fmt.Sprintf("gritline:score:%s:%s", userID, scope)
}

// Publish stores the score, replacing the previous one.
func (b *RedisScoreboard) Publish(ctx context.Context, score domain.Score) error {
	payload, err := encodeScore(score)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, Key(score.UserID, score.Scope), payload, b.ttl).Err()
}

// Remove deletes the mirrored score of a scope.
func (b *RedisScoreboard) Remove(ctx context.Context, userID uuid.UUID, scope domain.Scope) error {
	return b.client.Del(ctx, Key(userID, scope)).Err()
}

// Latest returns the mirrored score of a scope.
func (b *RedisScoreboard) Latest(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, error) {
	payload, err := b.client.Get(ctx, Key(userID, scope)).Bytes()
	if err == redis.Nil {
		return domain.Score{}, ErrScoreNotMirrored
	}
	if err != nil {
		return domain.Score{}, err
	}
	return decodeScore(payload)
}

// Ping verifies the connection is still alive.
func (b *RedisScoreboard) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

type scorePayload struct {
	UserID       uuid.UUID `json:"user_id"`
	Scope        string    `json:"scope"`
	Grit         float64   `json:"grit"`
	Productivity float64   `json:"productivity"`
	Composite    float64   `json:"composite"`
	Instances    int       `json:"instances"`
	Version      uint64    `json:"version"`
	ComputedAt   time.Time `json:"computed_at"`
}

func encodeScore(s domain.Score) ([]byte, error) {
	payload, err := json.Marshal(scorePayload{
		UserID:       s.UserID,
		Scope:        s.Scope.String(),
		Grit:         s.Grit,
		Productivity: s.Productivity,
		Composite:    s.Composite,
		Instances:    s.Instances,
		Version:      s.Version,
		ComputedAt:   s.ComputedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode score: %w", err)
	}
	return payload, nil
}

func decodeScore(raw []byte) (domain.Score, error) {
	var p scorePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Score{}, fmt.Errorf("decode score: %w", err)
	}
	scope, err := domain.ParseScope(p.Scope)
	if err != nil {
		return domain.Score{}, fmt.Errorf("decode score: %w", err)
	}
	return domain.Score{
		UserID:       p.UserID,
		Scope:        scope,
		Grit:         p.Grit,
		Productivity: p.Productivity,
		Composite:    p.Composite,
		Instances:    p.Instances,
		Version:      p.Version,
		ComputedAt:   p.ComputedAt,
	}, nil
}
