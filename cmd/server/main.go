package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/docsflow/backend/internal/auth"
	"github.com/docsflow/backend/internal/config"
	"github.com/docsflow/backend/internal/health"
	"github.com/docsflow/backend/internal/logger"
	"github.com/docsflow/backend/internal/metrics"
	authmw "github.com/docsflow/backend/internal/middleware"
	"github.com/docsflow/backend/internal/notifier"
	"github.com/docsflow/backend/internal/repository"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg := config.Load()

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	appLogger := logger.New(logger.DefaultConfig())

	// Database connections: pgx pool for the account repository, sqlx on
	// top of the stdlib driver for the reset-token repository.
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	sqlxDB, err := sqlx.Connect("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open sqlx connection: %v", err)
	}
	defer sqlxDB.Close()

	// Redis is optional. Without it the revocation store is in-memory and
	// revocations do not survive a restart.
	var redisClient *redis.Client
	var revocation auth.RevocationStore
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cancel()
		revocation = auth.NewRedisRevocationStore(redisClient)
		appLogger.Info("using redis revocation store", "addr", cfg.Redis.Addr)
	} else {
		memStore := auth.NewMemoryRevocationStore(5 * time.Minute)
		defer memStore.Close()
		revocation = memStore
		appLogger.Info("using in-memory revocation store")
	}

	accountRepo := repository.NewAccountRepository(dbPool)
	resetRepo := repository.NewResetTokenRepository(sqlxDB)

	mailNotifier := notifier.NewSMTPNotifier(notifier.Config{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		FromName:    cfg.Mail.FromName,
		FrontendURL: cfg.Auth.FrontendURL,
	})

	tokenService := auth.NewTokenService(auth.TokenServiceConfig{
		Secret:     cfg.JWT.Secret,
		SessionTTL: cfg.JWT.SessionTTL,
		UnlockTTL:  cfg.JWT.UnlockTTL,
		Issuer:     cfg.JWT.Issuer,
	})
	hasher := auth.NewPasswordHasher()
	resetManager := auth.NewResetTokenManager(resetRepo, cfg.Auth.ResetTokenTTL, appLogger)
	lockoutPolicy := auth.NewLockoutPolicy(
		accountRepo,
		tokenService,
		mailNotifier,
		cfg.Auth.MaxFailedAttempts,
		cfg.Auth.AdminEmail,
		appLogger,
	)

	authService := auth.NewAuthService(
		accountRepo,
		hasher,
		tokenService,
		resetManager,
		lockoutPolicy,
		revocation,
		mailNotifier,
		appLogger,
	)

	authHandler := auth.NewAuthHandler(authService)
	authMiddleware := authmw.NewAuthMiddleware(authService)
	loggingMiddleware := authmw.NewLoggingMiddleware(appLogger)
	loginLimiter := authmw.NewLoginRateLimiter()

	rootCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	resetManager.StartCleanup(rootCtx, 10*time.Minute)

	dbStats := metrics.NewDBStatsCollector(dbPool, sqlxDB.DB)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	healthHandler := health.NewHandler(health.Config{
		DBPool:      dbPool,
		RedisClient: redisClient,
		Version:     Version,
	})

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(loggingMiddleware.Handler)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Auth.FrontendURL, "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(
			r,
			authHandler,
			authMiddleware.Authenticate,
			authMiddleware.RequireAdmin,
			loginLimiter.Handler,
		)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("starting server", "addr", addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("server exited")
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Printf("Connected to database %s on %s:%s", cfg.Database.DBName, cfg.Database.Host, cfg.Database.Port)
	return pool, nil
}
