package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	bootstrap.Main("api", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	logg := rt.Logger
	gormDB := rt.DB.DB()
	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)
	productRepo := product.NewRepository(gormDB)

	cartService, err := cart.NewService(cart.NewRepository(gormDB), cart.NewItemRepository(gormDB), rt.DB, logg, commerceMetrics)
	if err != nil {
		return fmt.Errorf("cart service: %w", err)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), productRepo)
	if err != nil {
		return fmt.Errorf("inventory service: %w", err)
	}

	ordersService, err := orders.NewService(
		orders.NewRepository(gormDB),
		rt.DB,
		customers.NewRepository(gormDB),
		productRepo,
		inventoryService,
		cartService,
		outbox.NewService(outbox.NewRepository(gormDB), logg),
		logg,
		commerceMetrics,
	)
	if err != nil {
		return fmt.Errorf("orders service: %w", err)
	}

	addr := ":" + rt.Config.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	ctx = logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			rt.Config,
			logg,
			rt.DB,
			rt.Redis,
			metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
			prometheus.DefaultGatherer,
			cartService,
			ordersService,
			inventoryService,
			outbox.NewDLQRepository(gormDB),
		),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
