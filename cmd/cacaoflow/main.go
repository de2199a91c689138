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

	"github.com/cacaoflow/cacaoflow/internal/app"
	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/auth"
	"github.com/cacaoflow/cacaoflow/internal/batch"
	"github.com/cacaoflow/cacaoflow/internal/dashboard"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/observability"
	"github.com/cacaoflow/cacaoflow/internal/platform/cache"
	"github.com/cacaoflow/cacaoflow/internal/platform/db"
	"github.com/cacaoflow/cacaoflow/internal/shared"
	"github.com/cacaoflow/cacaoflow/internal/staff"
	"github.com/cacaoflow/cacaoflow/internal/weather"
	"github.com/cacaoflow/cacaoflow/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "cacaoflow_session", cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	recorder := auditlog.NewRecorder(pool)
	auditRepo := auditlog.NewRepository(pool)
	auditService := auditlog.NewService(auditRepo)
	auditHandler := auditlog.NewHandler(logger, auditService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("job queue close", slog.Any("error", err))
		}
	}()

	equipmentRepo := equipment.NewRepository(pool)
	equipmentService := equipment.NewService(logger, equipmentRepo, recorder, stockScanScheduler{client: jobsClient})
	equipmentHandler := equipment.NewHandler(logger, equipmentService)

	batchRepo := batch.NewRepository(pool)
	batchService := batch.NewService(logger, batchRepo, equipmentService, recorder, auditService)
	batchHandler := batch.NewHandler(logger, batchService, metrics)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, recorder)

	staffRepo := staff.NewRepository(pool)
	staffService := staff.NewService(logger, staffRepo, recorder)
	staffHandler := staff.NewHandler(logger, staffService)

	weatherClient := weather.NewClient(cfg.WeatherAPIURL)
	weatherRepo := weather.NewRepository(pool)
	weatherService := weather.NewService(logger, weatherClient, weatherRepo, recorder)
	weatherHandler := weather.NewHandler(logger, weatherService)

	dashboardRepo := dashboard.NewRepository(pool)
	dashboardService := dashboard.NewService(logger, dashboardRepo, equipmentService, auditService, weatherService)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		AuthHandler:      authHandler,
		BatchHandler:     batchHandler,
		EquipmentHandler: equipmentHandler,
		AuditHandler:     auditHandler,
		StaffHandler:     staffHandler,
		WeatherHandler:   weatherHandler,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// stockScanScheduler enqueues a stock sweep after manual quantity changes
// so alert entries reflect the new levels before the next cron run.
type stockScanScheduler struct {
	client *jobs.Client
}

func (s stockScanScheduler) ScheduleScan(ctx context.Context) error {
	task, err := jobs.NewLowStockScanTask(time.Now())
	if err != nil {
		return err
	}
	_, err = s.client.Enqueue(ctx, task)
	return err
}
