package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/pkg/cache"
)

type fakeListingRepo struct {
	listings  map[string]*domain.JobListing
	listCalls int
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: map[string]*domain.JobListing{}}
}

func (r *fakeListingRepo) GetByID(_ context.Context, id string) (*domain.JobListing, error) {
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

func (r *fakeListingRepo) ListByOrganization(_ context.Context, organizationID string) ([]*domain.JobListing, error) {
	r.listCalls++
	var out []*domain.JobListing
	for _, l := range r.listings {
		if l.OrganizationID == organizationID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeListingRepo) Create(_ context.Context, listing *domain.JobListing) error {
	r.listings[listing.ID] = listing
	return nil
}

func (r *fakeListingRepo) UpdateStatus(_ context.Context, id, status string) error {
	l, ok := r.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Status = status
	return nil
}

func (r *fakeListingRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := r.listings[id]; !ok {
		return false, nil
	}
	delete(r.listings, id)
	return true, nil
}

// fakeSharedStore is an in-memory SharedStore mirroring the Redis
// implementation's contract: values filed under tags, versions bumped
// on staling
type fakeSharedStore struct {
	values    map[string][]byte
	keysByTag map[string][]string
	versions  map[string]int64
	failAll   error
	setCalls  int
}

func newFakeSharedStore() *fakeSharedStore {
	return &fakeSharedStore{
		values:    map[string][]byte{},
		keysByTag: map[string][]string{},
		versions:  map[string]int64{},
	}
}

func (s *fakeSharedStore) GetValue(_ context.Context, key string) ([]byte, bool, error) {
	if s.failAll != nil {
		return nil, false, s.failAll
	}
	raw, ok := s.values[key]
	return raw, ok, nil
}

func (s *fakeSharedStore) SetValue(_ context.Context, key string, value []byte, _ time.Duration, tags ...string) error {
	if s.failAll != nil {
		return s.failAll
	}
	s.setCalls++
	s.values[key] = value
	for _, tag := range tags {
		s.keysByTag[tag] = append(s.keysByTag[tag], key)
	}
	return nil
}

func (s *fakeSharedStore) Version(_ context.Context, tag string) (int64, error) {
	if s.failAll != nil {
		return 0, s.failAll
	}
	return s.versions[tag], nil
}

// markStale mimics another process staling a tag: bump the version and
// drop the filed keys
func (s *fakeSharedStore) markStale(tag string) {
	s.versions[tag]++
	for _, key := range s.keysByTag[tag] {
		delete(s.values, key)
	}
	delete(s.keysByTag, tag)
}

func newTestListingService() (*ListingService, *fakeListingRepo, *cache.Cache) {
	repo := newFakeListingRepo()
	c := cache.New()
	registry := cachetag.NewRegistry(nil, cachetag.NewMemoryStore(c))
	svc := NewListingService(repo, c, nil, registry, time.Minute, nil)
	return svc, repo, c
}

func newSharedTestListingService() (*ListingService, *fakeListingRepo, *cache.Cache, *fakeSharedStore) {
	repo := newFakeListingRepo()
	c := cache.New()
	shared := newFakeSharedStore()
	registry := cachetag.NewRegistry(nil, cachetag.NewMemoryStore(c))
	svc := NewListingService(repo, c, shared, registry, time.Minute, nil)
	return svc, repo, c, shared
}

func TestGetForOrganizationCachesResult(t *testing.T) {
	svc, repo, _ := newTestListingService()
	ctx := context.Background()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Title: "Engineer"}

	first, err := svc.GetForOrganization(ctx, "org_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(first))
	}

	if _, err := svc.GetForOrganization(ctx, "org_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected second read to hit the cache, repo called %d times", repo.listCalls)
	}
}

func TestGetForOrganizationPopulatesSharedTier(t *testing.T) {
	svc, repo, _, shared := newSharedTestListingService()
	ctx := context.Background()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Title: "Engineer"}

	if _, err := svc.GetForOrganization(ctx, "org_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shared.setCalls != 1 {
		t.Fatalf("expected one shared write, got %d", shared.setCalls)
	}
	if _, ok := shared.values["listings:org:org_1"]; !ok {
		t.Fatal("expected computed page stored in the shared tier")
	}
	// The key must be filed under both tags so staling either drops it
	for _, tag := range []string{"global:jobListings", "organizations:org_1-jobListings"} {
		if len(shared.keysByTag[tag]) == 0 {
			t.Fatalf("expected key filed under %q", tag)
		}
	}
}

func TestGetForOrganizationReadsSharedTier(t *testing.T) {
	svc, repo, _, shared := newSharedTestListingService()
	ctx := context.Background()

	// Another process already computed the page
	shared.values["listings:org:org_1"] = []byte(`[{"ID":"l1","OrganizationID":"org_1","Title":"Engineer"}]`)

	listings, err := svc.GetForOrganization(ctx, "org_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "l1" {
		t.Fatalf("expected shared entry served, got %v", listings)
	}
	if repo.listCalls != 0 {
		t.Fatalf("expected no repository read on a shared hit, got %d", repo.listCalls)
	}
}

func TestGetForOrganizationLocalHitRespectsTagVersion(t *testing.T) {
	svc, repo, _, shared := newSharedTestListingService()
	ctx := context.Background()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Title: "Engineer"}
	if _, err := svc.GetForOrganization(ctx, "org_1"); err != nil {
		t.Fatalf("warm caches: %v", err)
	}

	// Another process stales the scoped tag; the local entry's version
	// snapshot no longer matches and must not be served
	repo.listings["l2"] = &domain.JobListing{ID: "l2", OrganizationID: "org_1", Title: "Designer"}
	shared.markStale("organizations:org_1-jobListings")

	listings, err := svc.GetForOrganization(ctx, "org_1")
	if err != nil {
		t.Fatalf("read after remote staling: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected fresh page with 2 listings, got %d", len(listings))
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected repo re-read after remote staling, got %d calls", repo.listCalls)
	}
}

func TestGetForOrganizationSharedTierDownFallsBack(t *testing.T) {
	svc, repo, _, shared := newSharedTestListingService()
	ctx := context.Background()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Title: "Engineer"}
	shared.failAll = domain.ErrNotFound

	listings, err := svc.GetForOrganization(ctx, "org_1")
	if err != nil {
		t.Fatalf("shared tier failure must not fail the read: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected database fallback, got %d listings", len(listings))
	}
}

func TestCreateListingRevalidatesOrganizationScope(t *testing.T) {
	svc, repo, _ := newTestListingService()
	ctx := context.Background()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Title: "Engineer"}
	if _, err := svc.GetForOrganization(ctx, "org_1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	err := svc.CreateListing(ctx, &domain.JobListing{OrganizationID: "org_1", Title: "Designer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The cached page was dropped by the scoped tag, so the next read
	// goes back to the repository and sees both listings
	listings, err := svc.GetForOrganization(ctx, "org_1")
	if err != nil {
		t.Fatalf("read after create: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings after revalidation, got %d", len(listings))
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected repo re-read after invalidation, got %d calls", repo.listCalls)
	}
}

func TestCreateListingDefaults(t *testing.T) {
	svc, repo, _ := newTestListingService()

	listing := &domain.JobListing{OrganizationID: "org_1", Title: "Engineer"}
	if err := svc.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.ID == "" {
		t.Fatal("expected generated listing id")
	}
	if listing.Status != domain.ListingStatusDraft {
		t.Fatalf("expected draft status, got %q", listing.Status)
	}
	if _, ok := repo.listings[listing.ID]; !ok {
		t.Fatal("expected listing persisted")
	}
}

func TestCreateListingRequiresTitle(t *testing.T) {
	svc, _, _ := newTestListingService()

	err := svc.CreateListing(context.Background(), &domain.JobListing{OrganizationID: "org_1"})
	if err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestUpdateListingStatus(t *testing.T) {
	svc, repo, _ := newTestListingService()

	repo.listings["l1"] = &domain.JobListing{ID: "l1", OrganizationID: "org_1", Status: domain.ListingStatusDraft}
	if err := svc.UpdateListingStatus(context.Background(), "l1", domain.ListingStatusPublished); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.listings["l1"].Status != domain.ListingStatusPublished {
		t.Fatalf("expected published, got %q", repo.listings["l1"].Status)
	}
}

func TestUpdateListingStatusRejectsUnknown(t *testing.T) {
	svc, _, _ := newTestListingService()

	if err := svc.UpdateListingStatus(context.Background(), "l1", "archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestUpdateListingStatusMissingListing(t *testing.T) {
	svc, _, _ := newTestListingService()

	err := svc.UpdateListingStatus(context.Background(), "ghost", domain.ListingStatusPublished)
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
