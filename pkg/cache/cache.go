package cache

import (
	"sync"
	"time"
)

// Entry represents a cached value with expiration
type Entry struct {
	Value     interface{}
	Tags      []string
	ExpiresAt time.Time
}

// Cache is an in-memory cache whose entries are filed under invalidation
// tags. Invalidating a tag drops every entry that was stored under it.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*Entry
	byTag  map[string]map[string]struct{} // tag -> set of keys
}

// New creates a new cache
func New() *Cache {
	return &Cache{
		items: map[string]*Entry{},
		byTag: map[string]map[string]struct{}{},
	}
}

// Set stores a value with a TTL, filed under the given tags
func (c *Cache) Set(key string, value interface{}, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	c.items[key] = &Entry{
		Value:     value,
		Tags:      tags,
		ExpiresAt: time.Now().Add(ttl),
	}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = map[string]struct{}{}
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// Get retrieves a value from the cache if it hasn't expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// InvalidateTag removes every entry filed under the given tag.
// Invalidating the same tag twice is a no-op the second time.
func (c *Cache) InvalidateTag(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.byTag[tag] {
		c.removeLocked(key)
	}
	delete(c.byTag, tag)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]*Entry{}
	c.byTag = map[string]map[string]struct{}{}
}

// PurgeExpired drops entries past their TTL and returns how many were removed
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.ExpiresAt) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) removeLocked(key string) {
	entry, exists := c.items[key]
	if !exists {
		return
	}
	for _, tag := range entry.Tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
	delete(c.items, key)
}
