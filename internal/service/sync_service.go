package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/internal/event"
	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/internal/security/audit"
)

// SyncService reconciles identity-provider lifecycle events into local
// storage and invalidates the affected cache tags. Every handler is
// idempotent: processing a duplicate delivery, or retrying a partially
// completed attempt, converges to the same end state.
type SyncService struct {
	users  domain.UserRepository
	orgs   domain.OrganizationRepository
	tags   *cachetag.Registry
	audit  *audit.Logger
	logger *slog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	users domain.UserRepository,
	orgs domain.OrganizationRepository,
	tags *cachetag.Registry,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		users:  users,
		orgs:   orgs,
		tags:   tags,
		audit:  auditLogger,
		logger: logger,
	}
}

// Dispatch routes a validated event to its handler. A returned
// *event.ValidationError is permanent; anything else is retriable.
func (s *SyncService) Dispatch(ctx context.Context, evt *event.Event) error {
	start := time.Now()

	var err error
	switch evt.Type {
	case event.TypeUserCreated:
		err = s.HandleUserCreated(ctx, evt.User)
	case event.TypeUserUpdated:
		err = s.HandleUserUpdated(ctx, evt.User)
	case event.TypeUserDeleted:
		err = s.HandleUserDeleted(ctx, evt.User)
	case event.TypeOrganizationCreated:
		err = s.HandleOrganizationCreated(ctx, evt.Organization)
	case event.TypeOrganizationUpdated:
		err = s.HandleOrganizationUpdated(ctx, evt.Organization)
	case event.TypeOrganizationDeleted:
		err = s.HandleOrganizationDeleted(ctx, evt.Organization)
	default:
		err = &event.ValidationError{Field: "type", Reason: fmt.Sprintf("is unknown (%q)", evt.Type)}
	}

	result := "ok"
	if err != nil {
		result = "error"
		if event.IsValidation(err) {
			result = "rejected"
		}
	}
	metrics.ObserveSync(string(evt.Type), result, time.Since(start))
	return err
}

// HandleUserCreated inserts the user and its notification settings.
// A duplicate delivery is a success, not an error.
func (s *SyncService) HandleUserCreated(ctx context.Context, payload *event.UserPayload) error {
	if payload == nil {
		return &event.ValidationError{Field: "data", Reason: "is missing"}
	}

	// Fast path only: the storage-layer uniqueness constraint is the
	// actual guarantee against racing duplicates
	if _, err := s.users.GetByID(ctx, payload.ID); err == nil {
		s.logger.Info("user already exists, skipping create",
			slog.String("user_id", payload.ID),
		)
		s.invalidateUser(ctx, payload.ID)
		return nil
	}

	created, err := s.users.CreateWithSettings(ctx, userFromPayload(payload))
	if err != nil {
		return fmt.Errorf("failed to reconcile user created: %w", err)
	}

	if created {
		s.logger.Info("user synced", slog.String("user_id", payload.ID))
	} else {
		s.logger.Info("duplicate user create, treated as success",
			slog.String("user_id", payload.ID),
		)
	}
	s.audit.LogSync(ctx, string(event.TypeUserCreated), "user", payload.ID, "reconciled")

	s.invalidateUser(ctx, payload.ID)
	return nil
}

// HandleUserUpdated overwrites mutable fields, creating the row when
// the update arrived before its create
func (s *SyncService) HandleUserUpdated(ctx context.Context, payload *event.UserPayload) error {
	if payload == nil {
		return &event.ValidationError{Field: "data", Reason: "is missing"}
	}

	if err := s.users.Upsert(ctx, userFromPayload(payload)); err != nil {
		return fmt.Errorf("failed to reconcile user updated: %w", err)
	}

	s.logger.Info("user updated", slog.String("user_id", payload.ID))
	s.audit.LogSync(ctx, string(event.TypeUserUpdated), "user", payload.ID, "reconciled")

	s.invalidateUser(ctx, payload.ID)
	return nil
}

// HandleUserDeleted removes the user; dependent rows cascade.
// Deleting a missing user is a no-op success.
func (s *SyncService) HandleUserDeleted(ctx context.Context, payload *event.UserPayload) error {
	if payload == nil || payload.ID == "" {
		return &event.ValidationError{Field: "id", Reason: "is required"}
	}

	deleted, err := s.users.Delete(ctx, payload.ID)
	if err != nil {
		return fmt.Errorf("failed to reconcile user deleted: %w", err)
	}

	if deleted {
		s.logger.Info("user removed", slog.String("user_id", payload.ID))
	} else {
		s.logger.Info("user already absent, delete is a no-op",
			slog.String("user_id", payload.ID),
		)
	}
	s.audit.LogSync(ctx, string(event.TypeUserDeleted), "user", payload.ID, "reconciled")

	s.invalidateUser(ctx, payload.ID)
	return nil
}

// HandleOrganizationCreated inserts the organization
func (s *SyncService) HandleOrganizationCreated(ctx context.Context, payload *event.OrganizationPayload) error {
	if payload == nil {
		return &event.ValidationError{Field: "data", Reason: "is missing"}
	}

	created, err := s.orgs.Create(ctx, orgFromPayload(payload))
	if err != nil {
		return fmt.Errorf("failed to reconcile organization created: %w", err)
	}

	if created {
		s.logger.Info("organization synced", slog.String("organization_id", payload.ID))
	}
	s.audit.LogSync(ctx, string(event.TypeOrganizationCreated), "organization", payload.ID, "reconciled")

	s.invalidateOrganization(ctx, payload.ID, false)
	return nil
}

// HandleOrganizationUpdated overwrites mutable fields, upserting when
// the row is missing
func (s *SyncService) HandleOrganizationUpdated(ctx context.Context, payload *event.OrganizationPayload) error {
	if payload == nil {
		return &event.ValidationError{Field: "data", Reason: "is missing"}
	}

	if err := s.orgs.Upsert(ctx, orgFromPayload(payload)); err != nil {
		return fmt.Errorf("failed to reconcile organization updated: %w", err)
	}

	s.logger.Info("organization updated", slog.String("organization_id", payload.ID))
	s.audit.LogSync(ctx, string(event.TypeOrganizationUpdated), "organization", payload.ID, "reconciled")

	s.invalidateOrganization(ctx, payload.ID, false)
	return nil
}

// HandleOrganizationDeleted removes the organization; its listings and
// member settings cascade, so their tags are staled too
func (s *SyncService) HandleOrganizationDeleted(ctx context.Context, payload *event.OrganizationPayload) error {
	if payload == nil || payload.ID == "" {
		return &event.ValidationError{Field: "id", Reason: "is required"}
	}

	if _, err := s.orgs.Delete(ctx, payload.ID); err != nil {
		return fmt.Errorf("failed to reconcile organization deleted: %w", err)
	}

	s.logger.Info("organization removed", slog.String("organization_id", payload.ID))
	s.audit.LogSync(ctx, string(event.TypeOrganizationDeleted), "organization", payload.ID, "reconciled")

	s.invalidateOrganization(ctx, payload.ID, true)
	return nil
}

// invalidateUser stales the user's tags and its settings row's tags.
// The settings row shares the user's id (one-to-one keyed by parent),
// and invalidation is best-effort: failures are logged inside the
// registry and never fail the workflow.
func (s *SyncService) invalidateUser(ctx context.Context, id string) {
	s.tags.Invalidate(ctx, cachetag.KindUsers, cachetag.Scope{ID: id})
	s.tags.Invalidate(ctx, cachetag.KindUserNotificationSettings, cachetag.Scope{ID: id})
}

func (s *SyncService) invalidateOrganization(ctx context.Context, id string, cascaded bool) {
	s.tags.Invalidate(ctx, cachetag.KindOrganizations, cachetag.Scope{ID: id})
	if cascaded {
		s.tags.Invalidate(ctx, cachetag.KindJobListings, cachetag.Scope{
			ParentKind: cachetag.KindOrganizations,
			ParentID:   id,
		})
		s.tags.Invalidate(ctx, cachetag.KindOrganizationUserSettings, cachetag.Scope{
			ParentKind: cachetag.KindOrganizations,
			ParentID:   id,
		})
	}
}

func userFromPayload(p *event.UserPayload) *domain.User {
	return &domain.User{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func orgFromPayload(p *event.OrganizationPayload) *domain.Organization {
	return &domain.Organization{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
