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

	"github.com/freshmandi/freshmandi/internal/app"
	"github.com/freshmandi/freshmandi/internal/damage"
	"github.com/freshmandi/freshmandi/internal/ledger"
	"github.com/freshmandi/freshmandi/internal/masterdata"
	"github.com/freshmandi/freshmandi/internal/observability"
	"github.com/freshmandi/freshmandi/internal/payment"
	"github.com/freshmandi/freshmandi/internal/platform/cache"
	"github.com/freshmandi/freshmandi/internal/platform/db"
	"github.com/freshmandi/freshmandi/internal/procurement"
	"github.com/freshmandi/freshmandi/internal/reports"
	"github.com/freshmandi/freshmandi/internal/sales"
	"github.com/freshmandi/freshmandi/internal/session"
	"github.com/freshmandi/freshmandi/internal/shared"
	"github.com/freshmandi/freshmandi/jobs"
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

	redisClient := cache.New(ctx, cfg.RedisAddr, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	idempotencyStore := shared.NewIdempotencyStore(pool)

	ledgerRepo := ledger.NewRepository(pool)
	engine := ledger.NewEngine(ledgerRepo, logger, metrics, ledger.EngineConfig{
		LookbackDays: cfg.CarryLookbackDays,
	})
	reader := ledger.NewReader(ledgerRepo, cfg.CarryLookbackDays)

	masterDataRepo := masterdata.NewRepository(pool)
	masterDataService := masterdata.NewService(masterDataRepo)
	masterDataHandler := masterdata.NewHandler(logger, masterDataService)

	sessionRepo := session.NewRepository(pool)
	sessionHandler := session.NewHandler(logger, sessionRepo)

	stockCache := reports.NewStockCache(redisClient, cfg.StockCacheTTL, logger)
	reportsService := reports.NewService(reader, stockCache)
	reportsHandler := reports.NewHandler(logger, reportsService)

	procurementService := procurement.NewService(engine, masterDataService, idempotencyStore, stockCache)
	procurementHandler := procurement.NewHandler(logger, procurementService, procurement.NewRepository(pool))

	salesService := sales.NewService(engine, masterDataService, idempotencyStore, stockCache)
	salesHandler := sales.NewHandler(logger, salesService, sales.NewRepository(pool))

	damageService := damage.NewService(engine, masterDataService, idempotencyStore, stockCache)
	damageHandler := damage.NewHandler(logger, damageService, damage.NewRepository(pool))

	paymentService := payment.NewService(engine, masterDataService, idempotencyStore)
	paymentHandler := payment.NewHandler(logger, paymentService, payment.NewRepository(pool))

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ledgerHandler := ledger.NewHandler(logger, engine, jobsClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		MasterDataHandler:  masterDataHandler,
		SessionHandler:     sessionHandler,
		ProcurementHandler: procurementHandler,
		SalesHandler:       salesHandler,
		DamageHandler:      damageHandler,
		PaymentHandler:     paymentHandler,
		ReportsHandler:     reportsHandler,
		LedgerHandler:      ledgerHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
