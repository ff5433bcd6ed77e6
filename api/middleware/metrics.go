package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
)

// wrap records the status a handler writes. A handler that writes nothing
// is reported as 200, matching what net/http sends.
func wrap(w http.ResponseWriter, r *http.Request) (chimw.WrapResponseWriter, func() int) {
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	return ww, func() int {
		if s := ww.Status(); s != 0 {
			return s
		}
		return http.StatusOK
	}
}

// Metrics observes every request against its chi route pattern so path ids do
// not explode label cardinality.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww, status := wrap(w, r)
			start := time.Now()
			next.ServeHTTP(ww, r)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.Observe(r.Method, route, status(), time.Since(start))
		})
	}
}
