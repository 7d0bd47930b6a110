package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("key1", "value1", 1*time.Second)
	c.Delete("key1")
	_, ok := c.Get("key1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestInvalidateTag(t *testing.T) {
	c := New()
	c.Set("listings:org-1", "l1", 1*time.Second, "global:jobListings", "organizations:org-1-jobListings")
	c.Set("listings:org-2", "l2", 1*time.Second, "global:jobListings", "organizations:org-2-jobListings")
	c.Set("user:u1", "u1", 1*time.Second, "id:users-u1")

	c.InvalidateTag("organizations:org-1-jobListings")
	if _, ok := c.Get("listings:org-1"); ok {
		t.Fatalf("expected org-1 listings to be invalidated")
	}
	if _, ok := c.Get("listings:org-2"); !ok {
		t.Fatalf("expected org-2 listings to survive")
	}
	if _, ok := c.Get("user:u1"); !ok {
		t.Fatalf("expected user entry to survive")
	}

	// Global tag drops the remaining listing entry
	c.InvalidateTag("global:jobListings")
	if _, ok := c.Get("listings:org-2"); ok {
		t.Fatalf("expected org-2 listings to be invalidated by global tag")
	}
}

func TestInvalidateTagTwice(t *testing.T) {
	c := New()
	c.Set("k", "v", 1*time.Second, "global:users")
	c.InvalidateTag("global:users")
	c.InvalidateTag("global:users") // second call is a no-op
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to stay invalidated")
	}
}

func TestPurgeExpired(t *testing.T) {
	c := New()
	c.Set("old", "v", -1*time.Second, "global:users")
	c.Set("fresh", "v", 1*time.Minute, "global:users")
	if n := c.PurgeExpired(); n != 1 {
		t.Fatalf("expected 1 purged entry, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", c.Len())
	}
}
