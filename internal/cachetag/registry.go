package cachetag

import (
	"context"
	"log/slog"

	"github.com/yourorg/jobboard/internal/observability/metrics"
)

// Scope narrows an invalidation to one entity and, optionally, its
// parent-scoped tag
type Scope struct {
	ID         string
	ParentKind Kind
	ParentID   string
	Profile    FreshnessProfile
}

// Registry fans out tag invalidation for entity mutations. Stores are
// best-effort: a failing store is logged and counted, never surfaced,
// since correctness lives in the database and stale caches heal on the
// next recompute or expiry.
type Registry struct {
	stores         []TagStore
	logger         *slog.Logger
	defaultProfile FreshnessProfile
}

// NewRegistry creates a registry fanning out to the given stores
func NewRegistry(logger *slog.Logger, stores ...TagStore) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{stores: stores, logger: logger, defaultProfile: ProfileDefault}
}

// WithDefaultProfile sets the profile used when a scope does not name one
func (r *Registry) WithDefaultProfile(p FreshnessProfile) *Registry {
	r.defaultProfile = p
	return r
}

// Invalidate stales, in order: the kind's global tag, the id tag, and
// (when a parent is given) the parent-scoped tag. Calling it twice
// with the same arguments has the same observable effect as once.
func (r *Registry) Invalidate(ctx context.Context, kind Kind, scope Scope) {
	profile := scope.Profile
	if profile == "" {
		profile = r.defaultProfile
	}
	if profile == "" {
		profile = ProfileDefault
	}

	tags := []string{GlobalTag(kind)}

	if scope.ID != "" {
		idTag, err := IDTag(kind, scope.ID)
		if err == nil {
			tags = append(tags, idTag)
		}
	}

	if scope.ParentID != "" {
		scopedTag, err := ScopedTag(kind, scope.ParentKind, scope.ParentID)
		if err == nil {
			tags = append(tags, scopedTag)
		}
	}

	for _, tag := range tags {
		r.markStale(ctx, kind, tag, profile)
	}
}

func (r *Registry) markStale(ctx context.Context, kind Kind, tag string, profile FreshnessProfile) {
	for _, store := range r.stores {
		if err := store.MarkStale(ctx, tag, profile); err != nil {
			// Bounded staleness is acceptable; never fail the caller
			r.logger.Warn("tag invalidation failed",
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
			metrics.ObserveInvalidation(string(kind), "error")
			continue
		}
		metrics.ObserveInvalidation(string(kind), "ok")
	}
}
