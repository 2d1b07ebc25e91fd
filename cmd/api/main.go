package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/job-tracker/internal/api/http"
	"github.com/spec-kit/job-tracker/internal/api/http/handlers"
	"github.com/spec-kit/job-tracker/internal/config"
	"github.com/spec-kit/job-tracker/internal/events"
	"github.com/spec-kit/job-tracker/internal/observability"
	"github.com/spec-kit/job-tracker/internal/persistence"
	"github.com/spec-kit/job-tracker/internal/repository"
	"github.com/spec-kit/job-tracker/internal/repository/memory"
	"github.com/spec-kit/job-tracker/internal/service"
	"github.com/spec-kit/job-tracker/internal/worker"
)

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

	stores, health, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.Error(err))
	}
	defer closeStores()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("event_type", string(e.Type)), zap.Error(err))
	})
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification, cfg.Auth.ResetLinkBaseURL))
	worker.StartEventMetrics(dispatcher, metrics)

	app := httptransport.NewServer(httptransport.ServerDeps{
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		Dispatcher: dispatcher,
		Stores:     stores,
		Health:     health,
	})

	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Store.Driver),
			zap.String("reset_store", cfg.Auth.ResetStore))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// openStores connects the configured data store and reset-token store.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (httptransport.Stores, map[string]handlers.Pinger, func(), error) {
	var (
		stores  httptransport.Stores
		health  = map[string]handlers.Pinger{}
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (httptransport.Stores, map[string]handlers.Pinger, func(), error) {
		closeAll()
		return httptransport.Stores{}, nil, func() {}, err
	}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return fail(err)
			}
		}
		pool := pg.PoolHandle()
		stores.Users = repository.NewUserRepository(pool)
		stores.Jobs = repository.NewJobRepository(pool)
		stores.Resets = repository.NewPasswordResetRepository(pool)
		health["postgres"] = pg
	case config.StoreDriverMongo:
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, mg.Close)
		if err := repository.EnsureMongoIndexes(ctx, mg.DB); err != nil {
			return fail(err)
		}
		stores.Users = repository.NewMongoUserRepository(mg.DB)
		stores.Jobs = repository.NewMongoJobRepository(mg.DB)
		stores.Resets = repository.NewMongoResetRepository(mg.DB)
		health["mongodb"] = mg
	case config.StoreDriverMemory:
		store := memory.NewStore()
		stores.Users = store.Users()
		stores.Jobs = store.Jobs()
		stores.Resets = store.ResetTokens()
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		return fail(fmt.Errorf("unknown store driver %q", cfg.Store.Driver))
	}

	if cfg.Auth.ResetStore == config.ResetStoreRedis {
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, rdb.Close)
		stores.Resets = repository.NewRedisResetRepository(rdb.Client)
		health["redis"] = rdb
	}

	return stores, health, closeAll, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
