package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canteenx/canteenx-backend/api/controllers"
	webhookcontrollers "github.com/canteenx/canteenx-backend/api/controllers/webhooks"
	"github.com/canteenx/canteenx-backend/api/middleware"
	"github.com/canteenx/canteenx-backend/internal/notifications"
	"github.com/canteenx/canteenx-backend/internal/orders"
	"github.com/canteenx/canteenx-backend/internal/refunds"
	"github.com/canteenx/canteenx-backend/internal/reports"
	"github.com/canteenx/canteenx-backend/internal/settlement"
	"github.com/canteenx/canteenx-backend/pkg/config"
	"github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/gateway"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis may be nil in tests,
// which disables idempotency replay.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Orders        orders.Service
	Refunds       refunds.Service
	Settlements   settlement.Service
	Reports       reports.Service
	Notifications notifications.Service
	Gateway       gateway.Client
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisProbe redis.Pinger
	if deps.Redis != nil {
		redisProbe = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisProbe))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	// Gateway webhooks authenticate by signature, not idempotency key, so
	// they stay outside the idempotency group.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.Gateway(deps.Orders, deps.Gateway, logg))
	})

	var idemStore redis.IdempotencyStore
	if deps.Redis != nil {
		idemStore = deps.Redis
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/confirm-payment", controllers.ConfirmPayment(deps.Orders, logg))
			r.Post("/{orderId}/accept", controllers.AcceptOrder(deps.Orders, logg))
			r.Post("/{orderId}/complete", controllers.CompleteOrder(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Post("/{orderId}/refund", controllers.IssueRefund(deps.Refunds, logg))
		})

		r.Route("/v1/customers/{customerId}", func(r chi.Router) {
			r.Get("/orders", controllers.ListCustomerOrders(deps.Orders, logg))
		})

		r.Route("/v1/vendors/{vendorId}", func(r chi.Router) {
			r.Get("/orders", controllers.ListVendorOrders(deps.Orders, logg))
			r.Get("/settlements", controllers.ListVendorSettlements(deps.Settlements, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Route("/settlements", func(r chi.Router) {
				r.Post("/", controllers.GenerateSettlement(deps.Settlements, logg))
				r.Get("/{batchId}", controllers.GetSettlement(deps.Settlements, logg))
				r.Post("/{batchId}/export", controllers.ExportSettlement(deps.Settlements, logg))
			})
			r.Route("/reports", func(r chi.Router) {
				r.Get("/revenue", controllers.RevenueReport(deps.Reports, logg))
				r.Get("/liabilities", controllers.LiabilityReport(deps.Reports, logg))
				r.Get("/reconciliation", controllers.ReconciliationReport(deps.Reports, logg))
			})
		})
	})

	return r
}
