package cachetag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/jobboard/pkg/cache"
)

type recordingStore struct {
	calls    []string
	profiles []FreshnessProfile
	err      error
}

func (s *recordingStore) MarkStale(_ context.Context, tag string, profile FreshnessProfile) error {
	s.calls = append(s.calls, tag)
	s.profiles = append(s.profiles, profile)
	return s.err
}

func TestInvalidateGlobalOnly(t *testing.T) {
	store := &recordingStore{}
	registry := NewRegistry(nil, store)

	registry.Invalidate(context.Background(), KindUsers, Scope{})

	if len(store.calls) != 1 || store.calls[0] != "global:users" {
		t.Fatalf("expected [global:users], got %v", store.calls)
	}
}

func TestInvalidateFanOutOrder(t *testing.T) {
	store := &recordingStore{}
	registry := NewRegistry(nil, store)

	registry.Invalidate(context.Background(), KindJobListings, Scope{
		ID:         "listing_1",
		ParentKind: KindOrganizations,
		ParentID:   "org_1",
	})

	want := []string{
		"global:jobListings",
		"id:jobListings-listing_1",
		"organizations:org_1-jobListings",
	}
	if len(store.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), store.calls)
	}
	for i, tag := range want {
		if store.calls[i] != tag {
			t.Fatalf("call %d: expected %q, got %q", i, tag, store.calls[i])
		}
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	c := cache.New()
	store := NewMemoryStore(c)
	registry := NewRegistry(nil, store)

	c.Set("k", "v", time.Minute, "global:users")
	registry.Invalidate(context.Background(), KindUsers, Scope{})
	registry.Invalidate(context.Background(), KindUsers, Scope{})

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to be invalidated")
	}
}

func TestInvalidateSwallowsStoreErrors(t *testing.T) {
	failing := &recordingStore{err: errors.New("redis down")}
	healthy := &recordingStore{}
	registry := NewRegistry(nil, failing, healthy)

	registry.Invalidate(context.Background(), KindUsers, Scope{ID: "u1"})

	// Every store still sees every tag despite the failures
	if len(failing.calls) != 2 || len(healthy.calls) != 2 {
		t.Fatalf("expected both stores called twice, got %d and %d",
			len(failing.calls), len(healthy.calls))
	}
}

func TestInvalidateDefaultProfile(t *testing.T) {
	store := &recordingStore{}
	registry := NewRegistry(nil, store).WithDefaultProfile(ProfileImmediate)

	registry.Invalidate(context.Background(), KindUsers, Scope{})
	if store.profiles[0] != ProfileImmediate {
		t.Fatalf("expected immediate profile, got %q", store.profiles[0])
	}

	registry.Invalidate(context.Background(), KindUsers, Scope{Profile: ProfileDefault})
	if store.profiles[1] != ProfileDefault {
		t.Fatalf("expected scope profile to win, got %q", store.profiles[1])
	}
}
