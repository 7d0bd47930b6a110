package cachetag

import (
	"context"
	"time"

	"github.com/yourorg/jobboard/pkg/cache"
)

// FreshnessProfile hints how aggressively a staled tag's cached
// entries should be treated by the observing cache layer
type FreshnessProfile string

const (
	// ProfileDefault lets entries be served stale until the next
	// recompute picks up the new tag version
	ProfileDefault FreshnessProfile = "default"
	// ProfileImmediate drops cached entries right away
	ProfileImmediate FreshnessProfile = "immediate"
)

// TagStore marks a tag's cached results stale. Implementations must be
// idempotent: staling the same tag twice is equivalent to once.
type TagStore interface {
	MarkStale(ctx context.Context, tag string, profile FreshnessProfile) error
}

// SharedStore is a cross-process value cache whose entries participate
// in tag invalidation. Stored values are filed under their tags' key
// sets, so MarkStale drops them, and readers snapshot tag versions at
// compute time to detect entries staled from another process.
type SharedStore interface {
	// GetValue returns the stored bytes for key; ok is false on a miss
	GetValue(ctx context.Context, key string) ([]byte, bool, error)
	// SetValue stores value under key and files the key under each tag
	SetValue(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	// Version returns the tag's current version counter
	Version(ctx context.Context, tag string) (int64, error)
}

// MemoryStore adapts the in-process tag-aware cache into a TagStore
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a TagStore backed by an in-process cache
func NewMemoryStore(c *cache.Cache) *MemoryStore {
	return &MemoryStore{cache: c}
}

// MarkStale drops every cached entry filed under the tag
func (s *MemoryStore) MarkStale(_ context.Context, tag string, _ FreshnessProfile) error {
	s.cache.InvalidateTag(tag)
	return nil
}
