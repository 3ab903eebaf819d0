package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canteenx/canteenx-backend/api/routes"
	"github.com/canteenx/canteenx-backend/internal/ledger"
	"github.com/canteenx/canteenx-backend/internal/notifications"
	"github.com/canteenx/canteenx-backend/internal/orders"
	"github.com/canteenx/canteenx-backend/internal/refunds"
	"github.com/canteenx/canteenx-backend/internal/reports"
	"github.com/canteenx/canteenx-backend/internal/settlement"
	"github.com/canteenx/canteenx-backend/pkg/config"
	"github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/gateway"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/metrics"
	"github.com/canteenx/canteenx-backend/pkg/migrate"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gatewayClient, err := gateway.New(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

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

	refundsSvc, err := refunds.NewService(ordersRepo, ledgerSvc, gatewayClient, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(settlement.NewRepository(dbClient.DB()), dbClient, outboxSvc, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	reportsSvc, err := reports.NewService(reports.NewRepository(dbClient.DB()), cfg.Fees, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Orders:        ordersSvc,
			Refunds:       refundsSvc,
			Settlements:   settlementSvc,
			Reports:       reportsSvc,
			Notifications: notificationsSvc,
			Gateway:       gatewayClient,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
