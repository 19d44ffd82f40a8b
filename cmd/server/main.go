package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/okrboard/internal/dataaccess"
	"github.com/aryan0dhankhar/okrboard/internal/featureflags"
	"github.com/aryan0dhankhar/okrboard/internal/feed"
	"github.com/aryan0dhankhar/okrboard/internal/guard"
	"github.com/aryan0dhankhar/okrboard/internal/handler"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/okrboard/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
	"github.com/aryan0dhankhar/okrboard/internal/observability/tracing"
	"github.com/aryan0dhankhar/okrboard/internal/report"
	"github.com/aryan0dhankhar/okrboard/internal/repository"
	"github.com/aryan0dhankhar/okrboard/internal/security"
	"github.com/aryan0dhankhar/okrboard/internal/security/audit"
	"github.com/aryan0dhankhar/okrboard/internal/security/auth"
	"github.com/aryan0dhankhar/okrboard/internal/security/middleware"
	"github.com/aryan0dhankhar/okrboard/internal/security/ratelimit"
	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/worker"
	"github.com/aryan0dhankhar/okrboard/pkg/cache"
	"github.com/aryan0dhankhar/okrboard/pkg/config"
	"github.com/aryan0dhankhar/okrboard/pkg/database"
)

const maxRequestBody = 1 << 20

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting okrboard server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "okrboard", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Postgres
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Database.MigrateOnStart {
		if err := pool.Migrate(ctx); err != nil {
			log.Error("failed to migrate database", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 5. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Initialize repositories
	db := pool.GetDB()
	accountRepo := repository.NewPostgresAccountRepository(db, log)
	credentialRepo := repository.NewPostgresCredentialRepository(db, log)
	profileRepo := repository.NewCachedProfileRepository(
		repository.NewPostgresProfileRepository(db, log), redisClient, cfg.ProfileCacheTTL, log,
	)
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	objectiveRepo := repository.NewPostgresObjectiveRepository(db, log)
	teamRepo := repository.NewPostgresTeamRepository(db, log)
	wikiRepo := repository.NewPostgresWikiRepository(db, log)
	feedRepo := repository.NewPostgresFeedRepository(db, log)
	selectionStore := repository.NewRedisSelectionStore(redisClient, cfg.SelectionTTL, log)
	denylist := repository.NewRedisTokenDenylist(redisClient)

	// 7. Initialize security components
	flags := featureflags.Load()
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	authz := security.NewAuthorizationService(log)
	hub := feed.NewHub(32, log)
	auditLogger := audit.NewLogger(feedRepo, hub, log)

	// 8. Initialize services
	queryCache := cache.New()
	exec := dataaccess.NewExecutor(dataaccess.Options{
		Cache:       queryCache,
		TTL:         cfg.QueryCacheTTL,
		MaxAttempts: cfg.QueryMaxAttempts,
		Logger:      log,
	})
	authService := service.NewAuthService(accountRepo, credentialRepo, profileRepo, tokenManager, denylist, service.AuthConfig{
		TokenTTL:      cfg.TokenTTL,
		SignupEnabled: flags.Signup,
	}, log)
	feedService := service.NewFeedService(feedRepo, exec, log)
	tenantService := service.NewTenantService(tenantRepo, selectionStore, exec, auditLogger, log)
	profileService := service.NewProfileService(profileRepo, tenantRepo, exec, authz, auditLogger, log)
	okrService := service.NewOKRService(objectiveRepo, exec, authz, auditLogger, feedService, log)
	teamService := service.NewTeamService(teamRepo, exec, authz, auditLogger, log)
	wikiService := service.NewWikiService(wikiRepo, exec, authz, auditLogger, log)
	aggregator := report.NewAggregator(objectiveRepo, teamRepo, exec, log)

	// 9. Initialize handlers and routes
	mux := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, rateLimiter, log),
		Tenants: handler.NewTenantHandler(tenantService, log),
		Admin:   handler.NewAdminHandler(profileService, log),
		OKRs:    handler.NewOKRHandler(okrService, log),
		Teams:   handler.NewTeamHandler(teamService, log),
		Wiki:    handler.NewWikiHandler(wikiService, log),
		Feed:    handler.NewFeedHandler(feedService, hub, flags.FeedStream, cfg.CORSAllowedOrigins, log),
		Reports: handler.NewReportHandler(aggregator, log),
		Health:  handler.NewHealthHandler(handler.PingFunc(pool.Health), redisClient, log),
		Metrics: promhttp.Handler(),
	}, guard.NewInterpreter(log))

	// Chain middleware: request ID -> CORS -> input checks -> auth -> rate limit -> audit -> metrics -> mux
	var rootHandler http.Handler = metrics.HTTPMetricsMiddleware(mux)
	rootHandler = middleware.AuditDenied(auditLogger)(rootHandler)
	rootHandler = middleware.RateLimit(rateLimiter, log)(rootHandler)
	rootHandler = middleware.Authenticate(authService, authService, selectionStore, log)(rootHandler)
	rootHandler = middleware.ValidateJSONContentType(log)(rootHandler)
	rootHandler = middleware.MaxBodySize(maxRequestBody)(rootHandler)
	rootHandler = middleware.SanitizeInputs(log)(rootHandler)
	rootHandler = middleware.CORS(cfg.CORSAllowedOrigins)(rootHandler)
	rootHandler = middleware.RequestID(log)(rootHandler)

	// 10. Start cache sweeper in background
	sweeper := worker.NewCacheSweeper(queryCache, log, cfg.QueryCacheTTL)
	go sweeper.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "okrboard"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Bool("signup", flags.Signup),
		slog.Bool("feed_stream", flags.FeedStream),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Live feed connections are hijacked; closing the hub ends them.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	if err := redisClient.Close(); err != nil {
		log.Error("redis close error", slog.String("error", err.Error()))
	}
	if err := pool.Close(); err != nil {
		log.Error("database close error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
