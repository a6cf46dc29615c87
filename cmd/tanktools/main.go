package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tanktools/tanktools/internal/activity"
	"github.com/tanktools/tanktools/internal/app"
	"github.com/tanktools/tanktools/internal/gate"
	"github.com/tanktools/tanktools/internal/observability"
	"github.com/tanktools/tanktools/internal/permstore"
	"github.com/tanktools/tanktools/internal/platform/cache"
	"github.com/tanktools/tanktools/internal/platform/db"
	"github.com/tanktools/tanktools/internal/session"
	"github.com/tanktools/tanktools/internal/tanks"
	"github.com/tanktools/tanktools/internal/view"
	"github.com/tanktools/tanktools/jobs"
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

	catalog, err := cfg.LoadCatalog()
	if err != nil {
		logger.Error("load policy catalog", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := db.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	metrics := observability.NewMetrics()

	activityLog := activity.NewRedisLog(redisClient)
	var sink activity.Sink = activityLog
	var jobsHandler *jobs.Handler
	if cfg.ActivityQueue {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		queueClient := asynq.NewClient(redisOpts)
		defer func() {
			if err := queueClient.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		sink = activity.NewQueueSink(queueClient)
		jobsHandler = jobs.NewHandler(inspector, logger)
	}
	dispatcher := activity.NewDispatcher(sink, cfg.ActivityBuffer, logger)
	dispatcher.OnDrop = metrics.ActivityDropped

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		dispatcher.Run(dispatchCtx)
	}()

	permRepo := permstore.NewCachedStore(permstore.NewPostgresStore(dbpool), redisClient, cfg.PermissionCacheTTL, logger)
	permClient := permstore.NewClient(permRepo, cfg.PermissionFetchTimeout)

	accessGate := gate.New(gate.Config{
		Catalog:   catalog,
		Fetcher:   permClient,
		Location:  cfg.Location(),
		Activity:  dispatcher,
		Logger:    logger,
		Metrics:   metrics,
		Templates: templates,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Templates:          templates,
		Sessions:           session.NewManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction()),
		Gate:               accessGate,
		Activity:           dispatcher,
		Metrics:            metrics,
		TanksHandler:       tanks.NewHandler(logger, tanks.NewRepository(dbpool), dispatcher),
		PermissionsHandler: permstore.NewHandler(logger, permRepo, dispatcher),
		ActivityHandler:    activity.NewHandler(logger, activityLog),
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("timezone", cfg.Location().String()),
			slog.Int("roles", len(catalog.Roles())))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	stopDispatch()
	dispatchWG.Wait()
	if n := dispatcher.Dropped(); n > 0 {
		logger.Warn("activity entries dropped", slog.Uint64("count", n))
	}
}
