package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/gearguard/internal/api/http"
	"github.com/spec-kit/gearguard/internal/auth"
	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/persistence"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/repository/memory"
	"github.com/spec-kit/gearguard/internal/service"
	"github.com/spec-kit/gearguard/internal/triage"
	"github.com/spec-kit/gearguard/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		pg    *persistence.Postgres
		repos *repository.Repositories
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		repos = memory.NewStore().Repositories()
	default:
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repository.NewPostgres(pg.PoolHandle())
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var locker triage.Locker = &triage.LocalLocker{}
	if redis.Enabled() {
		locker = triage.NewRedisLocker(redis.Client, triage.DefaultLockKey, cfg.AI.ScanLockTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	services := service.New(service.Options{
		Auth:         cfg.Auth,
		Notification: cfg.Notification,
		Tokens:       tokens,
		Repos:        repos,
		Dispatcher:   dispatcher,
		Predictor:    triage.NewHTTPPredictor(cfg.AI.PredictorURL, cfg.AI.PredictorTimeout()),
		Explainer:    triage.NewExplainer(cfg.AI, logger),
		Locker:       locker,
		Metrics:      metrics,
		Logger:       logger,
	})
	worker.StartNotificationWorker(services.Notifications)
	scanDone := worker.StartScanWorker(ctx, services.Triage, cfg.AI.ScanInterval(), logger)

	app := httptransport.NewServer(httptransport.ServerConfig{
		Name:           cfg.App.Name,
		Version:        cfg.App.Version,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
		Postgres:       pg,
		Redis:          redis,
	}, services, auth.NewAuthMiddleware(tokens, repos.Users))

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()), zap.String("storage", cfg.Storage.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-scanDone
	logger.Info("metrics at shutdown", zap.Any("metrics", metrics.Snapshot()))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
