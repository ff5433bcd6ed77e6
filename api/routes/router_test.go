package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	pkgAuth "github.com/angelmondragon/conduit-storefront/pkg/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/metrics"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type memKeyStore struct {
	data   map[string]string
	counts map[string]int64
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memKeyStore) Ping(context.Context) error { return nil }

func (m *memKeyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memKeyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memKeyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key], _ = value.(string)
	return nil
}

func (m *memKeyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKeyStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memKeyStore) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }
func (m *memKeyStore) RateLimitKey(scope string) string      { return "rl:" + scope }

type stubOrders struct {
	orders.Service
	listed []orders.ListParams
}

func (s *stubOrders) List(_ context.Context, params orders.ListParams) (pagination.Page[orders.OrderDTO], error) {
	s.listed = append(s.listed, params)
	return pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{}}, nil
}

type stubCart struct {
	cart.Service
	owners []string
	added  []int
}

func (s *stubCart) Add(ctx context.Context, owner string, _ uuid.UUID, qty int) (*cart.Cart, error) {
	s.added = append(s.added, qty)
	return s.Load(ctx, owner)
}

func (s *stubCart) Load(_ context.Context, owner string) (*cart.Cart, error) {
	s.owners = append(s.owners, owner)
	return &cart.Cart{OwnerID: owner, Lines: []cart.Line{}}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "storefront-test", ExpirationMinutes: 15}
	return cfg
}

type harness struct {
	handler http.Handler
	cfg     *config.Config
	orders  *stubOrders
	cart    *stubCart
}

func newHarness(t *testing.T, db stubPinger) *harness {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	h := &harness{cfg: cfg, orders: &stubOrders{}, cart: &stubCart{}}
	h.handler = NewRouter(
		cfg,
		logger.Nop(),
		db,
		newMemKeyStore(),
		stubSessions{},
		metrics.NewHTTPMetrics(reg),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Services{Orders: h.orders, Cart: h.cart},
	)
	return h
}

func (h *harness) token(t *testing.T, role enums.UserRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token, userID
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t, stubPinger{})
	live := h.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "test", live.Header().Get("X-Storefront-Env"))
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	down := newHarness(t, stubPinger{err: errors.New("db down")})
	rec := down.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")
}

func TestDistributorRoutesRequireRole(t *testing.T) {
	h := newHarness(t, stubPinger{})

	assert.Equal(t, http.StatusUnauthorized, h.do(httptest.NewRequest(http.MethodGet, "/api/v1/distributor/orders", nil)).Code)

	clientToken, _ := h.token(t, enums.UserRoleClient)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/distributor/orders", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)

	distToken, _ := h.token(t, enums.UserRoleDistributor)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/distributor/orders?status=shipped&q=jos%C3%A9&limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+distToken)
	require.Equal(t, http.StatusOK, h.do(req).Code)
	require.Len(t, h.orders.listed, 1)
	assert.Equal(t, orders.ListParams{Status: "shipped", Search: "josé", Limit: 10}, h.orders.listed[0])
}

func TestCartOwnerResolution(t *testing.T) {
	h := newHarness(t, stubPinger{})

	assert.Equal(t, http.StatusBadRequest, h.do(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)).Code)

	anon := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Cart-Owner", anon)
	require.Equal(t, http.StatusOK, h.do(req).Code)

	token, userID := h.token(t, enums.UserRoleClient)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Cart-Owner", anon)
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, h.do(req).Code)

	assert.Equal(t, []string{anon, userID.String()}, h.cart.owners)
}

func TestCartAddZeroQuantityReturnsCart(t *testing.T) {
	h := newHarness(t, stubPinger{})
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
	req.Header.Set("X-Cart-Owner", uuid.NewString())
	require.Equal(t, http.StatusOK, h.do(req).Code)
	assert.Equal(t, []int{0}, h.cart.added)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":"`+uuid.NewString()+`","quantity":-1}`))
	req.Header.Set("X-Cart-Owner", uuid.NewString())
	assert.Equal(t, http.StatusBadRequest, h.do(req).Code)
	assert.Len(t, h.cart.added, 1)
}

func TestPlaceOrderRequiresIdempotencyKey(t *testing.T) {
	h := newHarness(t, stubPinger{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("X-Cart-Owner", uuid.NewString())
	rec := h.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Idempotency-Key")
}

func TestMetricsEndpointRecordsRoutePatterns(t *testing.T) {
	h := newHarness(t, stubPinger{})
	h.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, stubPinger{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-Cart-Owner")
	rec := h.do(req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
