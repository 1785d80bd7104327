package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/moneybuckets/internal/infra/postgres"
	infraRedis "github.com/kislikjeka/moneybuckets/internal/infra/redis"
	"github.com/kislikjeka/moneybuckets/internal/ledger"
	"github.com/kislikjeka/moneybuckets/internal/platform/account"
	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
	"github.com/kislikjeka/moneybuckets/internal/platform/importer"
	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
	"github.com/kislikjeka/moneybuckets/internal/platform/user"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/handler"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/moneybuckets/pkg/config"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Env:    cfg.Env,
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
	}, os.Stdout)
	log.Info("Starting buckets API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DBMaxConns),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// The cache is optional: without Redis every read goes to Postgres.
	var cache *infraRedis.BucketCache
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis unavailable, bucket cache disabled", "error", err)
		} else {
			cache = infraRedis.NewBucketCacheWithTTL(redisClient, cfg.SummaryCacheTTL, log)
			log.Info("Redis connection established", "cache_ttl", cfg.SummaryCacheTTL)
		}
	}

	userRepo := postgres.NewUserRepository(db.Pool)
	accountRepo := postgres.NewAccountRepository(db.Pool)
	bucketRepo := postgres.NewBucketRepository(db.Pool)
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)
	keywordRepo := postgres.NewKeywordRepository(db.Pool)

	// Interface values must stay nil, not hold a nil *BucketCache.
	var bucketCache bucket.Cache
	var summaryCache ledger.SummaryCache
	if cache != nil {
		bucketCache = cache
		summaryCache = cache
	}

	userSvc := user.NewService(userRepo, log)
	accountSvc := account.NewService(accountRepo)
	bucketSvc := bucket.NewService(bucketRepo, accountRepo, bucketCache, log)
	ledgerSvc := ledger.NewService(ledgerRepo, summaryCache, log)
	keywordSvc := keyword.NewService(keywordRepo, bucketSvc, log)
	importSvc := importer.NewService(ledgerSvc, keywordSvc, log)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret, middleware.DefaultTokenTTL)

	health := map[string]handler.Pinger{"database": db.Pool}
	optional := map[string]handler.Pinger{}
	if redisClient != nil {
		optional["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	limiter := middleware.NewRateLimiter(100, 20)
	go limiter.RunCleanup(ctx)

	r := httpapi.NewRouter(httpapi.Config{
		Logger:             log,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimiter:        limiter,
		AuthHandler:        handler.NewAuthHandler(userSvc, jwtSvc),
		AccountHandler:     handler.NewAccountHandler(accountSvc),
		BucketHandler:      handler.NewBucketHandler(bucketSvc, ledgerSvc),
		TransactionHandler: handler.NewTransactionHandler(ledgerSvc),
		KeywordHandler:     handler.NewKeywordHandler(keywordSvc),
		ImportHandler:      handler.NewImportHandler(importSvc, bucketSvc),
		HealthHandler:      handler.NewHealthHandler(health, optional),
		JWTMiddleware:      middleware.JWTMiddleware(jwtSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.AuditEnabled {
		auditor := ledger.NewAuditor(ledgerSvc, &ledger.AuditorConfig{
			Interval: cfg.AuditInterval,
			Logger:   log,
		})
		go auditor.Run(ctx)
	} else {
		log.Warn("Projection auditor disabled")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped gracefully")
	return nil
}
