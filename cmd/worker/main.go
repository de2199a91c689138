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

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/cacaoflow/cacaoflow/internal/app"
	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/platform/db"
	"github.com/cacaoflow/cacaoflow/internal/weather"
	"github.com/cacaoflow/cacaoflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	recorder := auditlog.NewRecorder(pool)

	equipmentRepo := equipment.NewRepository(pool)
	equipmentService := equipment.NewService(logger, equipmentRepo, recorder, nil)

	weatherClient := weather.NewClient(cfg.WeatherAPIURL)
	weatherRepo := weather.NewRepository(pool)
	weatherService := weather.NewService(logger, weatherClient, weatherRepo, recorder)

	weatherTask, err := jobs.NewWeatherFetchTask(time.Now().UTC())
	if err != nil {
		logger.Error("build weather task", slog.Any("error", err))
		os.Exit(1)
	}
	lowStockTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWeatherFetch, Handler: jobs.NewWeatherFetchHandler(logger, weatherService)},
			{Type: jobs.TaskLowStockScan, Handler: jobs.NewLowStockScanHandler(logger, equipmentService, recorder)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: weatherTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 5 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	healthRouter := chi.NewRouter()
	healthRouter.Route("/jobs", func(r chi.Router) {
		jobs.NewHandler(inspector, logger).MountRoutes(r)
	})
	healthServer := &http.Server{Addr: cfg.WorkerHealthAddr, Handler: healthRouter}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		logger.Info("starting worker health server", slog.String("addr", cfg.WorkerHealthAddr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
