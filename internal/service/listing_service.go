package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/pkg/cache"
)

// cachedListings is what the in-process cache holds: the computed
// result plus the tag versions observed when it was computed. A bumped
// version means another process staled the tag after we cached.
type cachedListings struct {
	listings []*domain.JobListing
	versions map[string]int64
}

// ListingService serves job listings through two cache tiers, the
// in-process tag-aware cache in front of the shared store, and
// revalidates tags on the write side
type ListingService struct {
	listings domain.JobListingRepository
	cache    *cache.Cache
	shared   cachetag.SharedStore
	tags     *cachetag.Registry
	ttl      time.Duration
	logger   *slog.Logger
}

// NewListingService creates a new listing service. shared may be nil,
// leaving only the in-process tier.
func NewListingService(
	listings domain.JobListingRepository,
	c *cache.Cache,
	shared cachetag.SharedStore,
	tags *cachetag.Registry,
	ttl time.Duration,
	logger *slog.Logger,
) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		listings: listings,
		cache:    c,
		shared:   shared,
		tags:     tags,
		ttl:      ttl,
		logger:   logger,
	}
}

// GetForOrganization returns an organization's listings, cached under
// the global and organization-scoped listing tags. Local entries are
// served only while their tag versions still match the shared store;
// on a local miss the shared store is consulted before the database.
func (s *ListingService) GetForOrganization(ctx context.Context, organizationID string) ([]*domain.JobListing, error) {
	if organizationID == "" {
		return nil, fmt.Errorf("organization id required")
	}

	scopedTag, err := cachetag.ScopedTag(cachetag.KindJobListings, cachetag.KindOrganizations, organizationID)
	if err != nil {
		return nil, err
	}
	tags := []string{cachetag.GlobalTag(cachetag.KindJobListings), scopedTag}

	key := "listings:org:" + organizationID
	if cached, ok := s.cache.Get(key); ok {
		entry := cached.(*cachedListings)
		if s.versionsCurrent(ctx, entry) {
			metrics.ObserveCacheHit()
			return entry.listings, nil
		}
		s.cache.Delete(key)
	}
	metrics.ObserveCacheMiss()

	if listings, ok := s.getShared(ctx, key); ok {
		s.storeLocal(ctx, key, listings, tags)
		return listings, nil
	}

	listings, err := s.listings.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	s.storeLocal(ctx, key, listings, tags)
	s.putShared(ctx, key, listings, tags)

	return listings, nil
}

// versionsCurrent reports whether the entry's tag-version snapshot
// still matches the shared store. A degraded shared store counts as
// current; the local TTL bounds the staleness window.
func (s *ListingService) versionsCurrent(ctx context.Context, entry *cachedListings) bool {
	if s.shared == nil || entry.versions == nil {
		return true
	}
	for tag, seen := range entry.versions {
		ver, err := s.shared.Version(ctx, tag)
		if err != nil {
			return true
		}
		if ver != seen {
			return false
		}
	}
	return true
}

func (s *ListingService) storeLocal(ctx context.Context, key string, listings []*domain.JobListing, tags []string) {
	entry := &cachedListings{listings: listings}
	if s.shared != nil {
		versions := make(map[string]int64, len(tags))
		for _, tag := range tags {
			ver, err := s.shared.Version(ctx, tag)
			if err != nil {
				// No snapshot; the entry lives on TTL alone
				versions = nil
				break
			}
			versions[tag] = ver
		}
		entry.versions = versions
	}
	s.cache.Set(key, entry, s.ttl, tags...)
}

func (s *ListingService) getShared(ctx context.Context, key string) ([]*domain.JobListing, bool) {
	if s.shared == nil {
		return nil, false
	}
	raw, ok, err := s.shared.GetValue(ctx, key)
	if err != nil {
		s.logger.Warn("shared cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var listings []*domain.JobListing
	if err := json.Unmarshal(raw, &listings); err != nil {
		s.logger.Warn("malformed shared cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return listings, true
}

func (s *ListingService) putShared(ctx context.Context, key string, listings []*domain.JobListing, tags []string) {
	if s.shared == nil {
		return
	}
	raw, err := json.Marshal(listings)
	if err != nil {
		return
	}
	if err := s.shared.SetValue(ctx, key, raw, s.ttl, tags...); err != nil {
		s.logger.Warn("failed to populate shared cache",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// CreateListing inserts a draft listing and revalidates the listing
// tags for its organization
func (s *ListingService) CreateListing(ctx context.Context, listing *domain.JobListing) error {
	if listing.OrganizationID == "" {
		return fmt.Errorf("organization id required")
	}
	if listing.Title == "" {
		return fmt.Errorf("title required")
	}

	listing.ID = uuid.NewString()
	if listing.Status == "" {
		listing.Status = domain.ListingStatusDraft
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return err
	}

	s.revalidate(ctx, listing)
	return nil
}

// UpdateListingStatus moves a listing through its lifecycle and
// revalidates its tags
func (s *ListingService) UpdateListingStatus(ctx context.Context, id, status string) error {
	switch status {
	case domain.ListingStatusDraft, domain.ListingStatusPublished, domain.ListingStatusDelisted:
	default:
		return fmt.Errorf("unknown listing status %q", status)
	}

	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.listings.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.revalidate(ctx, listing)
	return nil
}

func (s *ListingService) revalidate(ctx context.Context, listing *domain.JobListing) {
	s.tags.Invalidate(ctx, cachetag.KindJobListings, cachetag.Scope{
		ID:         listing.ID,
		ParentKind: cachetag.KindOrganizations,
		ParentID:   listing.OrganizationID,
	})
}
