package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canteenx/canteenx-backend/internal/cron"
	"github.com/canteenx/canteenx-backend/internal/ledger"
	"github.com/canteenx/canteenx-backend/internal/notifications"
	"github.com/canteenx/canteenx-backend/internal/orders"
	"github.com/canteenx/canteenx-backend/internal/reports"
	"github.com/canteenx/canteenx-backend/internal/settlement"
	"github.com/canteenx/canteenx-backend/pkg/config"
	"github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/metrics"
	"github.com/canteenx/canteenx-backend/pkg/migrate"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/redis"
)

const lockKeyFormat = "cx:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), ordersRepo, dbClient, outboxSvc, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(ordersRepo, ledgerSvc, dbClient, outboxSvc, cfg.Fees, cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	settlementRepo := settlement.NewRepository(dbClient.DB())
	settlementSvc, err := settlement.NewService(settlementRepo, dbClient, outboxSvc, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	reportsSvc, err := reports.NewService(reports.NewRepository(dbClient.DB()), cfg.Fees, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	register := func(job cron.Job, err error) {
		if err != nil {
			logg.Error(context.Background(), "failed to build cron job", err)
			os.Exit(1)
		}
		registry.Register(job)
	}

	register(cron.NewSettlementJob(cron.SettlementJobParams{
		Logger:    logg,
		Vendors:   settlementRepo,
		Generator: settlementSvc,
	}))
	register(cron.NewReconciliationJob(cron.ReconciliationJobParams{
		Logger:     logg,
		Reconciler: reportsSvc,
		Tx:         dbClient,
		Outbox:     outboxSvc,
	}))
	register(cron.NewStaleOrderJob(cron.StaleOrderJobParams{
		Logger:   logg,
		Reader:   cron.NewStaleOrderReader(dbClient.DB()),
		Canceler: ordersSvc,
	}))
	register(cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  int(cfg.Cron.OutboxRetention.Hours() / 24),
	}))
	register(cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
	}))

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.TickInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
