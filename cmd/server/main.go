package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/config"
	"github.com/shiva/shipquote/internal/handler"
	"github.com/shiva/shipquote/internal/middleware"
	"github.com/shiva/shipquote/internal/repository"
	"github.com/shiva/shipquote/internal/service"
	"github.com/shiva/shipquote/pkg/cache"
	"github.com/shiva/shipquote/pkg/db"
	"github.com/shiva/shipquote/pkg/logger"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()
	checks := map[string]handler.HealthCheck{}

	// ── Storage ─────────────────────────────────────────
	var store repository.Store
	if cfg.NeedsPostgres() {
		pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres, zl)
		if err != nil {
			zl.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pgPool.Close()
		if err := db.EnsureSchema(ctx, pgPool); err != nil {
			zl.Fatal("failed to apply schema", zap.Error(err))
		}
		store = repository.NewPostgresStore(pgPool)
		zl.Info("PostgreSQL connected", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))
	} else {
		store = repository.NewMemoryStore()
		zl.Warn("using in-memory store; configuration is lost on restart")
	}
	checks[cfg.Engine.StoreDriver] = store.Ping

	// ── Template lock ───────────────────────────────────
	var locker service.Locker
	if cfg.NeedsRedis() {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, zl)
		if err != nil {
			zl.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, cfg.Engine.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return cache.HealthCheck(ctx, redisClient) }
		zl.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		locker = service.NewKeyedMutex()
	}

	// ── Initialize layers ───────────────────────────────
	catalogSvc := service.NewCatalogService(store, zl)
	templateSvc := service.NewTemplateService(store, locker, cfg.Engine.LockWait, zl)
	quoteSvc := service.NewQuoteService(store, cfg.Engine.QuoteBatchLimit, zl)

	handlers := handler.NewHandlers(catalogSvc, templateSvc, quoteSvc, zl)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	router.HandleFunc("/health", handler.Health(checks)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	handler.RegisterRoutes(router, handlers)

	// Outermost first: every request gets an id before it is logged or recovered.
	root := middleware.Chain(router,
		middleware.RequestID(zl),
		middleware.RequestLogger(zl),
		middleware.Recoverer(zl),
		middleware.CORS,
	)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(zl.Named("http")),
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		zl.Info("server listening",
			zap.String("addr", cfg.Server.ServerAddr()),
			zap.String("store", cfg.Engine.StoreDriver),
			zap.String("lock", cfg.Engine.LockDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
		return
	}

	zl.Info("server gracefully stopped")
}
