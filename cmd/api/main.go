package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/conduit-storefront/api/routes"
	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/internal/bootstrap"
	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/auth/session"
	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/redis"
	"github.com/angelmondragon/conduit-storefront/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	p := bootstrap.Start("api")
	ctx, stop := p.RunContext()
	defer stop()

	handler, err := build(ctx, p)
	p.Must(ctx, "api wiring", err)
	p.Exit(ctx, serve(ctx, p, handler))
}

func build(ctx context.Context, p *bootstrap.Process) (http.Handler, error) {
	cfg, logg := p.Config, p.Logger

	stores, err := p.OpenStores(ctx)
	if err != nil {
		return nil, err
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}
	p.Defer("redis", redisClient.Close)

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	magicLinks, err := auth.NewRedisMagicLinks(redisClient)
	if err != nil {
		return nil, fmt.Errorf("magic link store: %w", err)
	}

	// product images stay unsigned when no bucket is configured
	var signer products.ImageSigner
	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap gcs: %w", err)
		}
		p.Defer("gcs", gcsClient.Close)
		signer = gcsClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(reg)
	emitter := outbox.NewService(stores.Outbox, logg)

	var svc routes.Services
	if svc.Auth, err = auth.NewService(auth.ServiceParams{
		Users:          stores.Users,
		Sessions:       sessions,
		MagicLinks:     magicLinks,
		Tx:             stores.Tx,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		AuthConfig:     cfg.Auth,
		Logger:         logg,
	}); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if svc.Products, err = products.NewService(stores.Products, signer, logg); err != nil {
		return nil, fmt.Errorf("products service: %w", err)
	}
	cartService, err := cart.NewService(stores.Carts, stores.Products, logg)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}
	svc.Cart = cartService
	if svc.Orders, err = orders.NewService(stores.Orders, cartService, stores.Tx, emitter, domainMetrics, logg); err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}
	if svc.Quotes, err = quotes.NewService(stores.Quotes, stores.Tx, emitter, domainMetrics, logg); err != nil {
		return nil, fmt.Errorf("quotes service: %w", err)
	}

	return routes.NewRouter(
		cfg,
		logg,
		stores.Pinger,
		redisClient,
		sessions,
		metrics.NewHTTPMetrics(reg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		svc,
	), nil
}

// serve blocks until the listener fails or ctx is cancelled, then drains
// in-flight requests.
func serve(ctx context.Context, p *bootstrap.Process, handler http.Handler) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = p.Config.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = p.Logger.WithField(ctx, "addr", server.Addr)

	serveErr := make(chan error, 1)
	go func() {
		p.Logger.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	p.Logger.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
