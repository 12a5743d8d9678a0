package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store is the redis surface the router needs: idempotency records, write
// rate limiting and the readiness ping.
type Store interface {
	pkgredis.IdempotencyStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	store Store,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	cartService cart.Service,
	ordersService orders.Service,
	inventoryService inventory.Service,
	deadLetters controllers.DeadLetterReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, store))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	writeLimit := middleware.WriteRateLimit(middleware.NewWriteRateLimitPolicy(cfg.RateLimit), store, logg)
	guard := middleware.NewIdempotencyGuard(store, cfg.Idempotency, logg)
	idempotent, mustBeIdempotent := guard.Optional(), guard.Required()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(writeLimit)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/", controllers.CartCreate(cartService, logg))
			r.Delete("/", controllers.CartDeactivate(cartService, logg))
			r.With(idempotent).Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
			r.Patch("/{cartId}", controllers.CartSetActive(cartService, logg))
			r.Get("/{cartId}/items", controllers.CartListItems(cartService, logg))
			r.Delete("/{cartId}/items", controllers.CartClear(cartService, logg))
		})

		r.With(mustBeIdempotent).Post("/checkout", controllers.Checkout(ordersService, cfg.FeatureFlags.ClearCartOnCheckout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.With(mustBeIdempotent).Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Patch("/{orderId}", controllers.OrderUpdate(ordersService, logg))
		})

		r.Route("/inventory/products/{productId}", func(r chi.Router) {
			r.Get("/", controllers.InventoryProductStock(inventoryService, logg))
			r.Get("/variants", controllers.InventoryVariantQuantity(inventoryService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(writeLimit)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(ordersService, logg))
			r.With(mustBeIdempotent).Post("/", controllers.AdminOrderCreate(ordersService, logg))
			r.Patch("/{orderId}", controllers.OrderUpdate(ordersService, logg))
			r.With(idempotent).Post("/{orderId}/force-status", controllers.AdminOrderForceStatus(ordersService, logg))
			r.Delete("/{orderId}", controllers.AdminOrderDelete(ordersService, logg))
		})
		r.Route("/inventory", func(r chi.Router) {
			r.With(idempotent).Put("/", controllers.AdminInventoryUpsert(inventoryService, logg))
			r.Get("/{inventoryId}", controllers.AdminInventoryGet(inventoryService, logg))
			r.Delete("/{inventoryId}", controllers.AdminInventoryDelete(inventoryService, logg))
		})
		r.Get("/outbox/dead-letters", controllers.AdminDeadLetters(deadLetters, logg))
	})

	return r
}
