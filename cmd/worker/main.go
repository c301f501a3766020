package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/freshmandi/freshmandi/internal/app"
	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/observability"
	"github.com/freshmandi/freshmandi/internal/platform/db"
	"github.com/freshmandi/freshmandi/jobs"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	ledgerRepo := ledger.NewRepository(pool)
	engine := ledger.NewEngine(ledgerRepo, logger, metrics, ledger.EngineConfig{
		LookbackDays: cfg.CarryLookbackDays,
	})
	reader := ledger.NewReader(ledgerRepo, cfg.CarryLookbackDays)

	replayHandler := jobs.NewLedgerReplayHandler(engine, logger)
	integrityHandler := jobs.NewSnapshotIntegrityHandler(reader, logger)

	integrityTask, err := jobs.NewSnapshotIntegrityTask(jobs.SnapshotIntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobs.NewMetrics(nil),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerReplay, Handler: replayHandler.Handle},
			{Type: jobs.TaskSnapshotIntegrity, Handler: integrityHandler.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
