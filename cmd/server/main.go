package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/featureflags"
	"github.com/yourorg/jobboard/internal/handler"
	"github.com/yourorg/jobboard/internal/infrastructure/logger"
	"github.com/yourorg/jobboard/internal/infrastructure/redis"
	"github.com/yourorg/jobboard/internal/observability/metrics"
	"github.com/yourorg/jobboard/internal/observability/tracing"
	"github.com/yourorg/jobboard/internal/repository"
	"github.com/yourorg/jobboard/internal/security/audit"
	"github.com/yourorg/jobboard/internal/security/auth"
	"github.com/yourorg/jobboard/internal/security/middleware"
	"github.com/yourorg/jobboard/internal/security/ratelimit"
	"github.com/yourorg/jobboard/internal/service"
	"github.com/yourorg/jobboard/internal/worker"
	"github.com/yourorg/jobboard/pkg/cache"
	"github.com/yourorg/jobboard/pkg/config"
	"github.com/yourorg/jobboard/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting jobboard server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, "jobboard", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Postgres
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Redis
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Cache tag registry: in-process cache plus the shared Redis store
	localCache := cache.New()
	tagStore := cachetag.NewRedisStore(redisClient, log)
	registry := cachetag.NewRegistry(log, cachetag.NewMemoryStore(localCache), tagStore)
	if featureflags.Enabled(featureflags.ImmediateInvalidation) {
		registry.WithDefaultProfile(cachetag.ProfileImmediate)
	}

	// 7. Repositories
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	orgRepo := repository.NewPostgresOrganizationRepository(pool.GetDB(), log)
	listingRepo := repository.NewPostgresJobListingRepository(pool.GetDB(), log)

	// 8. Services
	auditLogger := audit.NewLogger(log)
	syncService := service.NewSyncService(userRepo, orgRepo, registry, auditLogger, log)
	listingService := service.NewListingService(listingRepo, localCache, tagStore, registry, cfg.CacheTTL, log)

	// 9. Event pipeline
	queue := worker.NewQueue(redisClient, cfg.EventQueueKey, cfg.DeadLetterKey)
	feed := worker.NewFeed()
	inline := featureflags.Enabled(featureflags.WebhookInline)

	eventWorker := worker.NewEventWorker(queue, syncService, feed, log, cfg.EventMaxAttempts, cfg.EventRetryBackoff)
	janitor := worker.NewJanitor(localCache, queue, log, cfg.JanitorInterval)
	if !inline {
		go eventWorker.Start(ctx)
	}
	go janitor.Start(ctx)

	// 10. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "jobboard")
	adminStore := auth.NewAdminStore(cfg.AdminEmail, cfg.AdminPasswordHash)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)

	// 11. Handlers
	webhookHandler := handler.NewWebhookHandler(queue, syncService, cfg.WebhookSecret, inline, log)
	revalidateHandler := handler.NewRevalidateHandler(registry, auditLogger, log)
	listingsHandler := handler.NewListingsHandler(listingService, log)
	loginHandler := handler.NewLoginHandler(tokenManager, adminStore, rateLimiter, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)
	eventsFeedHandler := handler.NewEventsFeedHandler(feed, log, cfg.CORSAllowedOrigins)

	// 12. Routes
	mux := http.NewServeMux()
	mux.Handle("POST /webhooks/identity", webhookHandler)
	mux.Handle("POST /api/auth/login", loginHandler)
	mux.Handle("POST /api/revalidate", revalidateHandler)
	mux.HandleFunc("GET /api/organizations/{id}/listings", listingsHandler.List)
	mux.HandleFunc("POST /api/organizations/{id}/listings", listingsHandler.Create)
	mux.HandleFunc("PATCH /api/listings/{id}/status", listingsHandler.UpdateStatus)
	mux.Handle("GET /ws/events", eventsFeedHandler)
	mux.HandleFunc("/healthz", healthHandler.Health)
	mux.HandleFunc("/readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request id -> metrics -> content type -> body cap -> JWT -> rate limit -> CORS+mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.ValidateJSONContentType(log)(
				middleware.MaxBodyBytes(int64(cfg.WebhookMaxBodyKB)*1024)(
					middleware.JWTMiddleware(tokenManager, auditLogger, log)(
						middleware.RateLimitMiddleware(rateLimiter, log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)

	// 13. HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "jobboard"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("webhook_inline", inline),
		slog.Bool("webhook_signed", cfg.WebhookSecret != ""),
	)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stop workers
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers
// for traceability; audit entries read it back via the audit package
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
