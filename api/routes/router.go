package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/conduit-storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/conduit-storefront/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/conduit-storefront/api/controllers/orders"
	quotecontrollers "github.com/angelmondragon/conduit-storefront/api/controllers/quotes"
	"github.com/angelmondragon/conduit-storefront/api/middleware"
	"github.com/angelmondragon/conduit-storefront/internal/auth"
	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/auth/session"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
)

// KeyStore is the Redis surface the HTTP layer needs. A nil store disables
// rate limiting and idempotency replay.
type KeyStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IdempotencyKey(scope, id string) string
	RateLimitKey(scope string) string
}

// Services groups the domain services the API exposes.
type Services struct {
	Auth     auth.Service
	Products products.Service
	Cart     cart.Service
	Orders   orders.Service
	Quotes   quotes.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	keyStore KeyStore,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	magicLinkPolicy := middleware.NewAuthRateLimitPolicy(
		"magic_link",
		cfg.AuthRateLimit.MagicLinkWindow,
		cfg.AuthRateLimit.MagicLinkIPLimit,
		cfg.AuthRateLimit.MagicLinkEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": keyStore,
		}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// idempotency sits inside authentication so entries are scoped per caller
	idem := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotent(keyStore, logg, policy)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, keyStore, logg), idem(middleware.IdempotencyRequired)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, keyStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(magicLinkPolicy, keyStore, logg)).Post("/magic-link", controllers.AuthMagicLink(svc.Auth, logg))
			r.Post("/magic-link/complete", controllers.AuthMagicLinkComplete(svc.Auth, logg))
		})

		// storefront: anonymous or signed in
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))

			r.Get("/categories", controllers.ListCategories(svc.Products, logg))
			r.Get("/products", controllers.ListProducts(svc.Products, logg))
			r.Get("/products/{productId}", controllers.GetProduct(svc.Products, logg))
			r.With(idem(middleware.IdempotencyRequired)).Post("/quotes", quotecontrollers.Submit(svc.Quotes, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.CartOwner(logg))
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
					r.Delete("/", cartcontrollers.CartClear(svc.Cart, logg))
					r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
					r.Put("/items/{productId}", cartcontrollers.CartUpdateItem(svc.Cart, logg))
					r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
				})
				r.With(idem(middleware.IdempotencyCheckout)).Post("/orders", ordercontrollers.Place(svc.Orders, logg))
			})
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(enums.UserRoleClient, logg))
			r.Get("/orders", ordercontrollers.MyOrders(svc.Orders, logg))
			r.With(idem(middleware.IdempotencyOptional)).Post("/orders/{orderId}/cancel", ordercontrollers.CancelMine(svc.Orders, logg))
			r.Get("/quotes", quotecontrollers.MyQuotes(svc.Quotes, logg))
		})

		r.Route("/distributor", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RequireRole(enums.UserRoleDistributor, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
				r.With(idem(middleware.IdempotencyOptional)).Post("/{orderId}/status", ordercontrollers.Transition(svc.Orders, logg))
			})
			r.Route("/quotes", func(r chi.Router) {
				r.Get("/", quotecontrollers.List(svc.Quotes, logg))
				r.Get("/{quoteId}", quotecontrollers.Detail(svc.Quotes, logg))
				r.With(idem(middleware.IdempotencyOptional)).Post("/{quoteId}/quote", quotecontrollers.SetQuoted(svc.Quotes, logg))
				r.With(idem(middleware.IdempotencyOptional)).Post("/{quoteId}/accept", quotecontrollers.Accept(svc.Quotes, logg))
				r.With(idem(middleware.IdempotencyOptional)).Post("/{quoteId}/decline", quotecontrollers.Decline(svc.Quotes, logg))
			})
			r.Route("/declined-quotes", func(r chi.Router) {
				r.Get("/", quotecontrollers.ListDeclined(svc.Quotes, logg))
				r.Get("/{declinedId}", quotecontrollers.DeclinedDetail(svc.Quotes, logg))
			})
		})
	})

	return r
}
