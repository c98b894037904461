package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/assettrack/internal/app"
	"github.com/odyssey-erp/assettrack/internal/assets"
	"github.com/odyssey-erp/assettrack/internal/auth"
	"github.com/odyssey-erp/assettrack/internal/masterdata"
	"github.com/odyssey-erp/assettrack/internal/observability"
	"github.com/odyssey-erp/assettrack/internal/platform/cache"
	"github.com/odyssey-erp/assettrack/internal/platform/db"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/reports"
	"github.com/odyssey-erp/assettrack/internal/requests"
	"github.com/odyssey-erp/assettrack/internal/users"
	"github.com/odyssey-erp/assettrack/jobs"
)

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
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("assettrack exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)

	revocations := auth.NewRedisRevocations(redisClient)
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL, revocations)
	if err != nil {
		return err
	}
	rbacMiddleware := rbac.Middleware{Service: rbac.NewService(), Verifier: tokens, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool), tokens, revocations, jobClient, cfg.Auth(), logger)

	assetRepo := assets.NewRepository(dbpool)
	assetService := assets.NewService(assetRepo, reportCache, logger)

	requestService := requests.NewService(requests.NewRepository(dbpool), assetRepo, cfg.Decisions(), logger,
		requests.WithMetrics(metrics),
		requests.WithInvalidator(reportCache),
	)

	userService := users.NewService(users.NewRepository(dbpool), cfg.BcryptCost, logger)
	lookupService := masterdata.NewService(masterdata.NewRepository(dbpool))
	reportsRepo := reports.NewRepository(dbpool)
	reportService := reports.NewService(reportsRepo, reportsRepo, reportCache, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		RBACMiddleware:    rbacMiddleware,
		AuthHandler:       auth.NewHandler(logger, authService, rbacMiddleware),
		AssetsHandler:     assets.NewHandler(logger, assetService, rbacMiddleware),
		RequestsHandler:   requests.NewHandler(logger, requestService, rbacMiddleware),
		UsersHandler:      users.NewHandler(logger, userService, rbacMiddleware),
		MasterDataHandler: masterdata.NewHandler(logger, lookupService, rbacMiddleware),
		ReportsHandler:    reports.NewHandler(logger, reportService, rbacMiddleware),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
