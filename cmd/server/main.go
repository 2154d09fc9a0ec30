package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/application/ledger"
	p2papp "github.com/erp/backoffice/internal/application/p2p"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const eventQueueSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting back-office service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() { _ = lp.Shutdown(context.Background()) }()
	if lp.IsEnabled() {
		bridged, err := logger.New(logCfg, lp.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			log.Fatal("Failed to initialize bridged logger", zap.Error(err))
		}
		log = bridged
	}

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() { _ = mp.Shutdown(context.Background()) }()
	ledgerMetrics, err := telemetry.NewLedgerMetrics(mp.Meter("backoffice.ledger"))
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", persistence.LogField(&cfg.Database))

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentGorm(db.DB, cfg.Database.Driver); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}

	if mp.IsEnabled() && cfg.Telemetry.DBMetricsEnabled {
		dbMetrics, err := telemetry.NewDBMetrics(mp.Meter("db.client"), telemetry.DBMetricsConfig{
			SlowQueryThreshold: cfg.Database.SlowQueryThresh,
		}, log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := telemetry.InstrumentGormMetrics(db.DB, dbMetrics); err != nil {
			log.Warn("Database metrics disabled", zap.Error(err))
		} else if sqlDB, err := db.DB.DB(); err == nil {
			dbMetrics.StartPoolStats(ctx, sqlDB)
			defer dbMetrics.Stop()
		}
	}

	// Refuse to serve against a schema the migrations have not reached
	schema := persistence.NewSchemaCheck(db.DB, models.All()...)
	caps, err := schema.Refresh(ctx)
	if err != nil {
		log.Fatal("Database schema check failed; run backofficectl migrate up", zap.Error(err))
	}
	for _, m := range models.All() {
		if tabler, ok := m.(interface{ TableName() string }); ok {
			if missing := caps.Missing(tabler.TableName()); len(missing) > 0 {
				log.Warn("Optional columns missing", zap.String("table", tabler.TableName()), zap.Strings("columns", missing))
			}
		}
	}

	rdb := cache.NewRedisClient(cfg.Redis)
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
	}

	bus := event.NewInMemoryEventBus(log, event.WithAsync(eventQueueSize))
	notifier, err := event.NewNotifier(cfg.Notify, rdb, log)
	if err != nil {
		log.Fatal("Failed to create notifier", zap.Error(err))
	}
	defer func() { _ = notifier.Close() }()
	bus.Subscribe(event.NewNotificationForwarder(notifier))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	scope := persistence.NewGormTransactionScope(db.DB, persistence.StoreOptions{
		LockWaitTimeout: cfg.Database.LockWaitTimeout,
		Schema:          schema,
	})
	eps := cfg.Ledger.PaymentEpsilon

	synthesizer := p2papp.NewBillSynthesizer(scope, cfg.Ledger.NetDays)
	stateMachine := p2papp.NewStateMachineService(scope, bus, synthesizer)
	stateMachine.SetMetrics(ledgerMetrics)
	reconciler := p2papp.NewReconciliationService(scope, synthesizer, cfg.Reconcile.MaxAttempts)
	reconciler.SetMetrics(ledgerMetrics)
	posting := ledger.NewPostingService(scope, bus, eps)
	posting.SetMetrics(ledgerMetrics)
	valuation := inventory.NewValuationService(scope, bus, eps)
	valuation.SetMetrics(ledgerMetrics)

	var worker *scheduler.Worker
	if cfg.Reconcile.Enabled {
		worker, err = scheduler.NewWorker(scheduler.WorkerConfig{
			Name:       "bill-reconciliation",
			LeaseName:  scheduler.ReconcileLeaseName,
			Interval:   cfg.Reconcile.Interval,
			LeaseTTL:   cfg.Reconcile.LockTTL,
			JobTimeout: cfg.Reconcile.LockTTL,
		}, scheduler.JobFunc(func(ctx context.Context) error {
			report, err := reconciler.RetryPending(ctx, cfg.Reconcile.BatchSize)
			if report.Attempted > 0 {
				log.Info("Reconciliation pass finished",
					zap.Int("attempted", report.Attempted),
					zap.Int("resolved", report.Resolved),
					zap.Int("failed", report.Failed),
					zap.Int("given_up", report.GivenUp),
				)
			}
			return err
		}), scheduler.NewLocker(rdb), log)
		if err != nil {
			log.Fatal("Failed to create reconciliation worker", zap.Error(err))
		}
		if err := worker.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation worker", zap.Error(err))
		}
	}

	idempotency, err := cache.NewIdempotencyStore(cfg.Cache, rdb, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotency.Close() }()

	var limiter cache.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = cache.NewRateLimiter(cfg.RateLimit, rdb)
		if err != nil {
			log.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		defer func() { _ = limiter.Close() }()
	}

	health := map[string]handler.Pinger{"database": db}
	if rdb != nil {
		health["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Config{
		Logger:           log,
		Verifier:         auth.NewJWTService(cfg.JWT),
		RateLimiter:      limiter,
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.Cache.IdempotencyTTL,
		Tracing:          middleware.TracingConfig{ServiceName: cfg.Telemetry.ServiceName, Enabled: cfg.Telemetry.Enabled},
		Meter:            httpMeter(mp),
		TrustedProxies:   cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Bills:     handler.NewBillHandler(ledger.NewBillService(scope, bus, eps)),
		Accounts:  handler.NewAccountHandler(ledger.NewAccountService(scope)),
		Payments:  handler.NewPaymentHandler(posting),
		Inventory: handler.NewInventoryHandler(valuation),
		P2P:       handler.NewP2PHandler(stateMachine),
		Health:    handler.NewHealthHandler(health),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if worker != nil {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Warn("Reconciliation worker did not stop cleanly", zap.Error(err))
		}
	}
	// drain queued notifications after the last request has published
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// httpMeter returns nil when metrics are off so the router skips the middleware
func httpMeter(mp *telemetry.MeterProvider) metric.Meter {
	if !mp.IsEnabled() {
		return nil
	}
	return mp.Meter("http.server")
}
