// Package api assembles the HTTP surface of the order engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/inventory"
	"github.com/joao-fontenele/surplus-delivery/internal/orders"
	"github.com/joao-fontenele/surplus-delivery/internal/profiles"
	"github.com/joao-fontenele/surplus-delivery/internal/respond"
	"github.com/joao-fontenele/surplus-delivery/internal/telemetry"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Config struct {
	Orders         *orders.Handler
	Inventory      *inventory.Handler
	Profiles       *profiles.Handler
	Auth           *auth.Middleware
	Metrics        http.Handler
	DB             Pinger
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	consumer := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(cfg.Auth.RequireRole(domain.RoleConsumer, h))
	}
	courier := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(cfg.Auth.RequireRole(domain.RoleCourier, h))
	}
	business := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(cfg.Auth.RequireRole(domain.RoleBusiness, h))
	}

	mux.HandleFunc("POST /consumer/orders", consumer(cfg.Orders.HandleCheckout))
	mux.HandleFunc("GET /consumer/orders", consumer(cfg.Orders.HandleListOrders))
	mux.HandleFunc("GET /consumer/orders/{id}", consumer(cfg.Orders.HandleGetOrder))
	mux.HandleFunc("PUT /consumer/orders/{id}/confirm-delivery", consumer(cfg.Orders.HandleConfirmDelivery))

	mux.HandleFunc("GET /courier/new-requests", courier(cfg.Orders.HandleListOpenRequests))
	mux.HandleFunc("GET /courier/deliveries", courier(cfg.Orders.HandleListOrders))
	mux.HandleFunc("GET /courier/deliveries/{id}", courier(cfg.Orders.HandleGetOrder))
	mux.HandleFunc("PUT /courier/deliveries/{id}/accept", courier(cfg.Orders.HandleAccept))
	mux.HandleFunc("PUT /courier/deliveries/{id}/status", courier(cfg.Orders.HandleUpdateStatus))
	mux.HandleFunc("GET /courier/earnings", courier(cfg.Orders.HandleEarnings))

	mux.HandleFunc("GET /business/food-items", business(cfg.Inventory.HandleListFoodItems))
	mux.HandleFunc("GET /business/food-items/{id}", business(cfg.Inventory.HandleGetFoodItem))
	mux.HandleFunc("PATCH /business/food-items/{id}", business(cfg.Inventory.HandleUpdateFoodItem))
	mux.HandleFunc("GET /business/orders", business(cfg.Orders.HandleListOrders))
	mux.HandleFunc("GET /business/orders/{id}", business(cfg.Orders.HandleGetOrder))
	mux.HandleFunc("PATCH /business/orders/{id}/status", business(cfg.Orders.HandleUpdateStatus))

	mux.HandleFunc("GET /me", telemetry.WithHTTPRoute(cfg.Auth.Authenticate(cfg.Profiles.HandleMe)))

	health := &healthHandler{db: cfg.DB, logger: cfg.Logger}
	mux.HandleFunc("GET /healthz", health.HandleHealthz)
	mux.HandleFunc("GET /readyz", health.HandleReadyz)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return otelhttp.NewHandler(WithTimeout(cfg.RequestTimeout, mux), "api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	)
}

// WithTimeout bounds every request context by d. Store calls observe the
// deadline and fail once it passes.
func WithTimeout(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type healthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func (h *healthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *healthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			respond.Error(w, h.logger, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respond.JSON(w, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}
