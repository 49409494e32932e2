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

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-cms/cmd/cms/cli"
	"github.com/odyssey-erp/odyssey-cms/internal/app"
	"github.com/odyssey-erp/odyssey-cms/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-cms/internal/audit/http"
	"github.com/odyssey-erp/odyssey-cms/internal/auth"
	"github.com/odyssey-erp/odyssey-cms/internal/content"
	"github.com/odyssey-erp/odyssey-cms/internal/observability"
	"github.com/odyssey-erp/odyssey-cms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-cms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-cms/internal/rbac"
	"github.com/odyssey-erp/odyssey-cms/internal/roles"
	"github.com/odyssey-erp/odyssey-cms/internal/shared"
	"github.com/odyssey-erp/odyssey-cms/internal/users"
	"github.com/odyssey-erp/odyssey-cms/jobs"
)

const usage = "usage: cms [serve | migrate | seed | jobs trigger <name> | jobs stats]"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		})
	case "seed":
		err = withPool(ctx, cfg, func(pool *pgxpool.Pool) error {
			code := cli.SeedCommand(ctx, cli.SeedOptions{
				Users:   users.NewRepository(pool),
				Content: content.NewRepository(pool),
				Stdout:  os.Stdout,
				Stderr:  os.Stderr,
			})
			if code != 0 {
				return fmt.Errorf("seed exited with code %d", code)
			}
			return nil
		})
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetainHours)
		code := jobsCLI.JobsCommand(ctx, os.Args[2:], os.Stdout, os.Stderr)
		if closeErr := jobsCLI.Close(); closeErr != nil {
			logger.Warn("close jobs cli", slog.Any("error", closeErr))
		}
		os.Exit(code)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command, slog.Any("error", err))
		os.Exit(1)
	}
}

func withPool(ctx context.Context, cfg *app.Config, fn func(*pgxpool.Pool) error) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 10, MaxConnLifetime: time.Hour})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionSecret, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger, Observer: metrics}

	authService := auth.NewService(auth.NewRepository(dbpool), logger,
		auth.WithAudit(auditLogger),
		auth.WithLoginObserver(metrics),
	)
	authHandler := auth.NewHandler(logger, authService, csrfManager, sessionManager.TTL(), cfg.LoginLimitPerMinute)

	usersService := users.NewService(users.NewRepository(dbpool), auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(dbpool)), rbacMiddleware)

	listCache := content.NewListCache(redisClient, cfg.ContentCacheTTL)
	if err := listCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("content cache invalidation listener", slog.Any("error", err))
	}
	contentService := content.NewService(content.NewRepository(dbpool), logger,
		content.WithCache(listCache),
		content.WithAudit(auditLogger),
		content.WithIdempotency(idempotencyStore),
		content.WithUserCounter(usersService),
	)
	contentHandler := content.NewHandler(logger, contentService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)
	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthService:    authService,
		AuthHandler:    authHandler,
		ContentHandler: contentHandler,
		RolesHandler:   rolesHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		AuditHandler:   auditHandler,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
