package test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/internal/handler"
	"github.com/yourorg/jobboard/internal/infrastructure/logger"
	"github.com/yourorg/jobboard/internal/security/audit"
	"github.com/yourorg/jobboard/internal/service"
	"github.com/yourorg/jobboard/pkg/cache"
)

// TestServerHelper creates a test HTTP server without needing Postgres
// or Redis: repositories are in-memory and events process inline
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger
	Mux    *http.ServeMux

	Users *MemUserRepo
	Orgs  *MemOrgRepo
	Cache *cache.Cache
}

// MemUserRepo is an in-memory UserRepository for integration tests
type MemUserRepo struct {
	Rows map[string]*domain.User
}

func (r *MemUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.Rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (r *MemUserRepo) CreateWithSettings(_ context.Context, user *domain.User) (bool, error) {
	if _, exists := r.Rows[user.ID]; exists {
		return false, nil
	}
	r.Rows[user.ID] = user
	return true, nil
}

func (r *MemUserRepo) Upsert(_ context.Context, user *domain.User) error {
	r.Rows[user.ID] = user
	return nil
}

func (r *MemUserRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, exists := r.Rows[id]; !exists {
		return false, nil
	}
	delete(r.Rows, id)
	return true, nil
}

// MemOrgRepo is an in-memory OrganizationRepository for integration tests
type MemOrgRepo struct {
	Rows map[string]*domain.Organization
}

func (r *MemOrgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	o, ok := r.Rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (r *MemOrgRepo) Create(_ context.Context, org *domain.Organization) (bool, error) {
	if _, exists := r.Rows[org.ID]; exists {
		return false, nil
	}
	r.Rows[org.ID] = org
	return true, nil
}

func (r *MemOrgRepo) Upsert(_ context.Context, org *domain.Organization) error {
	r.Rows[org.ID] = org
	return nil
}

func (r *MemOrgRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, exists := r.Rows[id]; !exists {
		return false, nil
	}
	delete(r.Rows, id)
	return true, nil
}

func NewTestServer(t *testing.T) *TestServerHelper {
	log := logger.NewLogger("debug")
	mux := http.NewServeMux()

	users := &MemUserRepo{Rows: map[string]*domain.User{}}
	orgs := &MemOrgRepo{Rows: map[string]*domain.Organization{}}
	c := cache.New()
	registry := cachetag.NewRegistry(log, cachetag.NewMemoryStore(c))
	syncService := service.NewSyncService(users, orgs, registry, audit.NewLogger(log), log)

	// Unsigned, inline webhook processing: no queue, no signature
	webhookHandler := handler.NewWebhookHandler(nil, syncService, "", true, log)
	mux.Handle("POST /webhooks/identity", webhookHandler)

	revalidateHandler := handler.NewRevalidateHandler(registry, audit.NewLogger(log), log)
	mux.Handle("POST /api/revalidate", revalidateHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# HELP test_metric Test metric\n# TYPE test_metric counter\n"))
	})

	server := httptest.NewServer(mux)

	return &TestServerHelper{
		Server: server,
		Logger: log,
		Mux:    mux,
		Users:  users,
		Orgs:   orgs,
		Cache:  c,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
