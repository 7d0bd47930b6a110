package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/internal/event"
	"github.com/yourorg/jobboard/internal/security/audit"
)

// fakeUserRepo is an in-memory UserRepository mirroring the
// idempotency contract of the Postgres implementation
type fakeUserRepo struct {
	users     map[string]*domain.User
	failAll   error
	missOnGet bool // simulate a row committed between check and insert
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	if r.missOnGet {
		return nil, domain.ErrNotFound
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) CreateWithSettings(_ context.Context, user *domain.User) (bool, error) {
	if r.failAll != nil {
		return false, r.failAll
	}
	if _, exists := r.users[user.ID]; exists {
		return false, nil
	}
	// The users table enforces email uniqueness; a different row
	// holding the email rejects the insert rather than absorbing it
	for _, u := range r.users {
		if u.Email == user.Email {
			return false, errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)
		}
	}
	r.users[user.ID] = user
	return true, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *domain.User) error {
	if r.failAll != nil {
		return r.failAll
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) (bool, error) {
	if r.failAll != nil {
		return false, r.failAll
	}
	if _, exists := r.users[id]; !exists {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

type fakeOrgRepo struct {
	orgs map[string]*domain.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: map[string]*domain.Organization{}}
}

func (r *fakeOrgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	o, ok := r.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (r *fakeOrgRepo) Create(_ context.Context, org *domain.Organization) (bool, error) {
	if _, exists := r.orgs[org.ID]; exists {
		return false, nil
	}
	r.orgs[org.ID] = org
	return true, nil
}

func (r *fakeOrgRepo) Upsert(_ context.Context, org *domain.Organization) error {
	r.orgs[org.ID] = org
	return nil
}

func (r *fakeOrgRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, exists := r.orgs[id]; !exists {
		return false, nil
	}
	delete(r.orgs, id)
	return true, nil
}

// tagRecorder captures staled tags so tests can assert the fan-out
type tagRecorder struct {
	tags []string
}

func (s *tagRecorder) MarkStale(_ context.Context, tag string, _ cachetag.FreshnessProfile) error {
	s.tags = append(s.tags, tag)
	return nil
}

func (s *tagRecorder) has(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func newTestSyncService() (*SyncService, *fakeUserRepo, *fakeOrgRepo, *tagRecorder) {
	users := newFakeUserRepo()
	orgs := newFakeOrgRepo()
	recorder := &tagRecorder{}
	registry := cachetag.NewRegistry(nil, recorder)
	svc := NewSyncService(users, orgs, registry, audit.NewLogger(nil), nil)
	return svc, users, orgs, recorder
}

func userPayload(id string) *event.UserPayload {
	now := time.Now()
	return &event.UserPayload{
		ID:        id,
		Name:      "Ada Lovelace",
		Email:     id + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func orgPayload(id string) *event.OrganizationPayload {
	now := time.Now()
	return &event.OrganizationPayload{
		ID:        id,
		Name:      "Acme",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestHandleUserCreated(t *testing.T) {
	svc, users, _, recorder := newTestSyncService()

	if err := svc.HandleUserCreated(context.Background(), userPayload("u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users.users))
	}

	// The user-created event touches the user tags and the settings
	// row tags created alongside it
	for _, tag := range []string{
		"global:users",
		"id:users-u1",
		"global:userNotificationSettings",
		"id:userNotificationSettings-u1",
	} {
		if !recorder.has(tag) {
			t.Fatalf("expected tag %q staled, got %v", tag, recorder.tags)
		}
	}
}

func TestHandleUserCreatedDuplicateIsSuccess(t *testing.T) {
	svc, users, _, _ := newTestSyncService()

	payload := userPayload("u1")
	if err := svc.HandleUserCreated(context.Background(), payload); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := svc.HandleUserCreated(context.Background(), payload); err != nil {
		t.Fatalf("duplicate create should succeed, got: %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected exactly 1 user after duplicate, got %d", len(users.users))
	}
}

func TestHandleUserCreatedEmailHeldByOtherUser(t *testing.T) {
	svc, users, _, _ := newTestSyncService()
	ctx := context.Background()

	if err := svc.HandleUserCreated(ctx, userPayload("u1")); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// New id, same email: not a duplicate delivery, a genuine conflict
	colliding := userPayload("u2")
	colliding.Email = "u1@example.com"
	err := svc.HandleUserCreated(ctx, colliding)
	if err == nil {
		t.Fatal("expected email conflict to surface as an error")
	}
	if event.IsValidation(err) {
		t.Fatal("email conflicts must stay retriable, not validation")
	}
	if _, ok := users.users["u2"]; ok {
		t.Fatal("expected no row written for the colliding user")
	}
}

func TestHandleUserCreatedRaceOnExistenceCheck(t *testing.T) {
	svc, users, _, _ := newTestSyncService()

	// Row commits between the existence check and the insert:
	// CreateWithSettings reports created=false, still a success
	users.users["u1"] = &domain.User{ID: "u1"}
	users.missOnGet = true
	if err := svc.HandleUserCreated(context.Background(), userPayload("u1")); err != nil {
		t.Fatalf("concurrent duplicate should succeed, got: %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users.users))
	}
}

func TestHandleUserCreatedStorageError(t *testing.T) {
	svc, users, _, _ := newTestSyncService()
	users.failAll = errors.New("connection refused")

	err := svc.HandleUserCreated(context.Background(), userPayload("u1"))
	if err == nil {
		t.Fatal("expected storage error to surface")
	}
	if event.IsValidation(err) {
		t.Fatal("storage errors must stay retriable, not validation")
	}
}

func TestHandleUserUpdatedUpsertsMissingRow(t *testing.T) {
	svc, users, _, recorder := newTestSyncService()

	if err := svc.HandleUserUpdated(context.Background(), userPayload("u1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := users.users["u1"]; !ok {
		t.Fatal("expected update on missing row to create it")
	}
	if !recorder.has("id:users-u1") {
		t.Fatalf("expected id tag staled, got %v", recorder.tags)
	}
}

func TestHandleUserDeletedMissingIsNoOp(t *testing.T) {
	svc, _, _, recorder := newTestSyncService()

	if err := svc.HandleUserDeleted(context.Background(), userPayload("ghost")); err != nil {
		t.Fatalf("delete of missing user should be a no-op, got: %v", err)
	}
	// Tags are still staled so any cached absence is refreshed
	if !recorder.has("id:users-ghost") {
		t.Fatalf("expected tags staled even on no-op delete, got %v", recorder.tags)
	}
}

func TestCreateDeleteCreateConverges(t *testing.T) {
	svc, users, _, _ := newTestSyncService()
	ctx := context.Background()

	payload := userPayload("u1")
	if err := svc.HandleUserCreated(ctx, payload); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.HandleUserDeleted(ctx, payload); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.HandleUserCreated(ctx, payload); err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected 1 user after create-delete-create, got %d", len(users.users))
	}
}

func TestHandleUserCreatedNilPayload(t *testing.T) {
	svc, _, _, _ := newTestSyncService()

	err := svc.HandleUserCreated(context.Background(), nil)
	if !event.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleOrganizationCreated(t *testing.T) {
	svc, _, orgs, recorder := newTestSyncService()

	if err := svc.HandleOrganizationCreated(context.Background(), orgPayload("org_1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orgs.orgs) != 1 {
		t.Fatalf("expected 1 organization, got %d", len(orgs.orgs))
	}
	if !recorder.has("id:organizations-org_1") {
		t.Fatalf("expected id tag staled, got %v", recorder.tags)
	}
}

func TestHandleOrganizationDeletedStalesDependents(t *testing.T) {
	svc, _, orgs, recorder := newTestSyncService()
	ctx := context.Background()

	if err := svc.HandleOrganizationCreated(ctx, orgPayload("org_1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.HandleOrganizationDeleted(ctx, orgPayload("org_1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(orgs.orgs) != 0 {
		t.Fatal("expected organization removed")
	}

	// Cascaded rows lose their cached projections too
	for _, tag := range []string{
		"id:organizations-org_1",
		"organizations:org_1-jobListings",
		"organizations:org_1-organizationUserSettings",
	} {
		if !recorder.has(tag) {
			t.Fatalf("expected tag %q staled, got %v", tag, recorder.tags)
		}
	}
}

func TestDispatchUnknownType(t *testing.T) {
	svc, _, _, _ := newTestSyncService()

	err := svc.Dispatch(context.Background(), &event.Event{Type: "session.created"})
	if !event.IsValidation(err) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestDispatchRoutesUserEvents(t *testing.T) {
	svc, users, _, _ := newTestSyncService()

	evt := &event.Event{Type: event.TypeUserCreated, User: userPayload("u1")}
	if err := svc.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := users.users["u1"]; !ok {
		t.Fatal("expected dispatch to create the user")
	}
}
