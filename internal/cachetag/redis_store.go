package cachetag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/jobboard/internal/infrastructure/redis"
	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/internal/reliability/circuitbreaker"
)

const (
	versionPrefix = "cachetag:ver:"
	keySetPrefix  = "cachetag:keys:"
	staleChannel  = "cachetag:stale"
)

// RedisStore marks tags stale for caches shared across processes.
// Each tag has a version counter; readers that recorded the version at
// compute time treat a bumped counter as stale. Caches may also
// register concrete cache keys under a tag; those keys are deleted
// outright when the tag is staled.
type RedisStore struct {
	redis   *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRedisStore creates a Redis-backed TagStore
func NewRedisStore(redisClient *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("tag store circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
		metrics.ObserveBreakerTransition("cachetag_redis", to.String())
	})
	return &RedisStore{
		redis:   redisClient,
		breaker: breaker,
		logger:  logger,
	}
}

// MarkStale bumps the tag's version, drops registered keys and, for
// the immediate profile, notifies subscribed caches
func (s *RedisStore) MarkStale(ctx context.Context, tag string, profile FreshnessProfile) error {
	if !s.breaker.AllowRequest() {
		return fmt.Errorf("tag store circuit open, skipping %q", tag)
	}

	err := s.markStale(ctx, tag, profile)
	if err != nil {
		s.breaker.RecordFailure()
		return err
	}
	s.breaker.RecordSuccess()
	return nil
}

func (s *RedisStore) markStale(ctx context.Context, tag string, profile FreshnessProfile) error {
	if _, err := s.redis.Incr(ctx, versionPrefix+tag); err != nil {
		return fmt.Errorf("failed to bump tag version: %w", err)
	}

	keys, err := s.redis.SMembers(ctx, keySetPrefix+tag)
	if err != nil {
		return fmt.Errorf("failed to read tag key set: %w", err)
	}
	if len(keys) > 0 {
		if err := s.redis.Delete(ctx, append(keys, keySetPrefix+tag)...); err != nil {
			return fmt.Errorf("failed to drop tagged keys: %w", err)
		}
	}

	if profile == ProfileImmediate {
		if err := s.redis.Publish(ctx, staleChannel, tag); err != nil {
			return fmt.Errorf("failed to publish staleness: %w", err)
		}
	}

	s.logger.Debug("tag marked stale",
		slog.String("tag", tag),
		slog.Int("dropped_keys", len(keys)),
		slog.String("profile", string(profile)),
	)
	return nil
}

// RegisterKey files a concrete cache key under a tag so MarkStale can
// delete it
func (s *RedisStore) RegisterKey(ctx context.Context, tag, cacheKey string) error {
	return s.redis.SAdd(ctx, keySetPrefix+tag, cacheKey)
}

// SetValue stores a serialized result and files its key under each
// tag, so MarkStale drops the value alongside the version bump
func (s *RedisStore) SetValue(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if !s.breaker.AllowRequest() {
		return fmt.Errorf("tag store circuit open, skipping %q", key)
	}
	if err := s.setValue(ctx, key, value, ttl, tags...); err != nil {
		s.breaker.RecordFailure()
		return err
	}
	s.breaker.RecordSuccess()
	return nil
}

func (s *RedisStore) setValue(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if err := s.redis.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("failed to store cached value: %w", err)
	}
	for _, tag := range tags {
		if err := s.RegisterKey(ctx, tag, key); err != nil {
			return fmt.Errorf("failed to file key under tag %q: %w", tag, err)
		}
	}
	return nil
}

// GetValue returns the stored bytes for a key; ok is false on a miss
func (s *RedisStore) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	if !s.breaker.AllowRequest() {
		return nil, false, fmt.Errorf("tag store circuit open, skipping %q", key)
	}
	val, err := s.redis.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			s.breaker.RecordSuccess()
			return nil, false, nil
		}
		s.breaker.RecordFailure()
		return nil, false, fmt.Errorf("failed to read cached value: %w", err)
	}
	s.breaker.RecordSuccess()
	return []byte(val), true, nil
}

// Version returns the current version counter for a tag (0 when the
// tag was never staled)
func (s *RedisStore) Version(ctx context.Context, tag string) (int64, error) {
	val, err := s.redis.Get(ctx, versionPrefix+tag)
	if err != nil {
		if redis.IsNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read tag version: %w", err)
	}
	var ver int64
	if _, err := fmt.Sscan(val, &ver); err != nil {
		return 0, fmt.Errorf("malformed tag version %q: %w", val, err)
	}
	return ver, nil
}
