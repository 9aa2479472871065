package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	specpkg "github.com/daap14/tenantauth/api"
	"github.com/daap14/tenantauth/internal/api"
	"github.com/daap14/tenantauth/internal/api/handler"
	"github.com/daap14/tenantauth/internal/api/middleware"
	"github.com/daap14/tenantauth/internal/audit"
	"github.com/daap14/tenantauth/internal/config"
	"github.com/daap14/tenantauth/internal/credential"
	"github.com/daap14/tenantauth/internal/database"
	"github.com/daap14/tenantauth/internal/eligibility"
	"github.com/daap14/tenantauth/internal/identity"
	"github.com/daap14/tenantauth/internal/metrics"
	"github.com/daap14/tenantauth/internal/session"
	"github.com/daap14/tenantauth/internal/sweeper"
	"github.com/daap14/tenantauth/internal/token"
	"github.com/daap14/tenantauth/internal/workspace"
	"github.com/daap14/tenantauth/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:        cfg.DatabaseMaxConns,
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	pool := db.Pool()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool, migrations.FS); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied")
	}

	codec, err := token.NewCodec(cfg.JWTSecret,
		token.WithIssuer(cfg.JWTIssuer),
		token.WithTTL(cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	)
	if err != nil {
		slog.Error("invalid token configuration", "error", err)
		os.Exit(1)
	}

	collectors := metrics.New()
	healthChecks := map[string]handler.Pinger{"database": db}

	var kafkaWriter *kafka.Writer
	sinks := []audit.Sink{audit.NewPostgresSink(pool)}
	if cfg.KafkaEnabled() {
		kafkaWriter = audit.NewKafkaWriter(cfg.KafkaBrokers, cfg.AuditTopic)
		sinks = append(sinks, audit.NewKafkaSink(kafkaWriter))
		slog.Info("audit events published to kafka", "topic", cfg.AuditTopic)
	}
	dispatcher := audit.NewDispatcher(cfg.AuditTimeout, collectors, sinks...)

	cache, memCache, err := setupEligibilityCache(cfg)
	if err != nil {
		slog.Error("failed to configure eligibility cache", "error", err)
		os.Exit(1)
	}
	if rc, ok := cache.(*eligibility.RedisCache); ok {
		healthChecks["redis"] = rc
	}

	sessions := session.NewRepository(pool)
	workspaceRepo := workspace.NewRepository(pool)

	identitySvc := identity.NewService(
		identity.NewRepository(pool),
		sessions,
		credential.NewHasher(cfg.HashConcurrency),
		codec,
		dispatcher,
		identity.WithGlobalEmailLogin(cfg.AllowGlobalEmailLogin),
		identity.WithLoginObserver(collectors),
	)
	authority := workspace.NewAuthority(workspaceRepo, dispatcher, workspace.WithInviteTTL(cfg.InviteTTL))
	eligibilitySvc := eligibility.NewService(
		eligibility.NewRepository(pool),
		cache,
		dispatcher,
		eligibility.WithCacheObserver(collectors),
	)

	tasks := []sweeper.Task{
		sweeper.Retain("sessions", cfg.SessionRetention, sessions.DeleteExpired),
		sweeper.Retain("invites", 0, workspaceRepo.DeleteExpiredInvites),
	}
	if memCache != nil {
		tasks = append(tasks, sweeper.Task{
			Name: "eligibility_cache",
			Run: func(context.Context, time.Time) (int64, error) {
				return int64(memCache.Purge()), nil
			},
		})
	}
	go sweeper.New(cfg.SweepInterval, collectors, tasks...).Start(ctx)

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst, collectors)
	go loginLimiter.Start(ctx, 5*time.Minute)

	router := api.NewRouter(api.RouterDeps{
		HealthChecks:   healthChecks,
		Version:        cfg.Version,
		OpenAPISpec:    specpkg.OpenAPISpec,
		Identity:       identitySvc,
		Workspaces:     authority,
		Eligibility:    eligibilitySvc,
		Metrics:        collectors,
		LoginLimiter:   loginLimiter,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting tenantauth server", "port", cfg.Port, "version", cfg.Version, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	dispatcher.Wait()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			slog.Error("failed to close kafka writer", "error", err)
		}
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// setupEligibilityCache returns Redis when REDIS_URL is set and an
// in-process cache otherwise. The second result is non-nil only for the
// in-process cache, which needs periodic purging.
func setupEligibilityCache(cfg *config.Config) (eligibility.Cache, *eligibility.MemoryCache, error) {
	if cfg.EligibilityCacheTTL <= 0 {
		return nil, nil, nil
	}
	if cfg.RedisURL == "" {
		mc := eligibility.NewMemoryCache(cfg.EligibilityCacheTTL, time.Now)
		return mc, mc, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	return eligibility.NewRedisCache(redis.NewClient(opts), cfg.EligibilityCacheTTL), nil, nil
}
