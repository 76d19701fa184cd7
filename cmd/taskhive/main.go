package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/taskhive/taskhive/pkg/api"
	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/auth"
	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/config"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/orgs"
	"github.com/taskhive/taskhive/pkg/tasks"
	"github.com/taskhive/taskhive/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskhive: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("starting taskhive")

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// Stores
	catalogStore, err := authz.NewPostgresStore(db)
	if err != nil {
		return err
	}
	userStore, err := users.NewPostgresStore(db)
	if err != nil {
		return err
	}
	orgStore, err := orgs.NewPostgresStore(db)
	if err != nil {
		return err
	}
	taskStore, err := tasks.NewPostgresStore(db)
	if err != nil {
		return err
	}
	auditStore, err := audit.NewPostgresStore(db, metrics)
	if err != nil {
		return err
	}

	// The role/permission catalog is reconciled on every boot
	authz.NewSeeder(catalogStore, catalogStore, logger).Seed(context.Background())

	resolver, err := orgs.NewResolver(orgStore, logger, metrics)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager([]byte(cfg.Auth.TokenSecret), cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	authService := auth.NewService(userStore, catalogStore, tokens, logger, metrics)
	orgService := orgs.NewService(orgStore, userStore, resolver, logger)
	taskService := tasks.NewService(taskStore, userStore, resolver, auditStore, tasks.ServiceConfig{
		RestrictAdminAssignment: cfg.Auth.RestrictAdminAssignment,
	}, logger)

	var loginLimiter *middleware.RateLimiter
	if redisClient != nil {
		loginLimiter = middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Auth.LoginRateLimit,
			WindowDuration:    cfg.Auth.LoginRateWindow,
		}, "ratelimit:login", logger)
	}

	retention := audit.NewRetentionJob(auditStore, audit.RetentionPolicy{
		RetentionDays: cfg.Audit.RetentionDays,
		Schedule:      cfg.Audit.CleanupSchedule,
	}, logger)
	if err := retention.Start(); err != nil {
		return fmt.Errorf("start audit retention: %w", err)
	}

	server := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, api.Deps{
		AuthService:  authService,
		TaskService:  taskService,
		OrgService:   orgService,
		UserStore:    userStore,
		AuditStore:   auditStore,
		LoginLimiter: loginLimiter,
		Health:       observability.NewHealthChecker(db, redisClient),
		Metrics:      metrics,
		Logger:       logger,
	})

	shutdown := observability.NewShutdownManager(logger, nil, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(server.Shutdown)
	shutdown.RegisterShutdownFunc(retention.Stop)

	var g errgroup.Group
	g.Go(server.Start)
	g.Go(shutdown.WaitForShutdown)

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.UpdateDBStats(db)
			}
		}()
	}

	return g.Wait()
}
