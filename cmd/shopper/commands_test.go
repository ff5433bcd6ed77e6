package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/api/responses"
	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/internal/terminal"
	"github.com/angelmondragon/conduit-storefront/pkg/apiclient"
	"github.com/angelmondragon/conduit-storefront/pkg/clientstate"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

// fakeStore serves the catalog and cart endpoints from memory.
type fakeStore struct {
	mu        sync.Mutex
	product   products.ProductDTO
	lines     map[string][]cart.Line
	owners    []string
	rejectPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		product: products.ProductDTO{
			ID:    uuid.New(),
			SKU:   "PVC-20",
			Name:  "PVC Conduit 20mm",
			Unit:  "m",
			Price: decimal.RequireFromString("12.50"),
		},
		lines: map[string][]cart.Line{},
	}
}

func (f *fakeStore) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != f.product.ID.String() {
			responses.WriteError(r.Context(), logger.Nop(), w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, f.product)
	})
	r.Get("/api/v1/cart", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		owner := r.Header.Get("X-Cart-Owner")
		f.owners = append(f.owners, owner)
		c := cart.Cart{OwnerID: owner, Lines: f.lines[owner]}
		c.Total, c.Count = cart.Totals(c.Lines)
		responses.WriteSuccess(w, c)
	})
	r.Post("/api/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductID uuid.UUID `json:"product_id"`
			Quantity  int       `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		owner := r.Header.Get("X-Cart-Owner")
		lines := f.lines[owner]
		for i := range lines {
			if lines[i].Product.ID == body.ProductID {
				lines[i].Quantity += body.Quantity
				responses.WriteSuccess(w, nil)
				return
			}
		}
		f.lines[owner] = append(lines, cart.Line{
			Product:  cart.Product{ID: f.product.ID, SKU: f.product.SKU, Name: f.product.Name, Unit: f.product.Unit, Price: f.product.Price},
			Quantity: body.Quantity,
		})
		responses.WriteSuccess(w, nil)
	})
	r.Put("/api/v1/cart/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectPut {
			responses.WriteError(r.Context(), logger.Nop(), w, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds stock"))
			return
		}
		responses.WriteSuccess(w, nil)
	})
	return r
}

func newTestShopper(t *testing.T, store *fakeStore) (*shopper, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	state, err := clientstate.Open(filepath.Join(t.TempDir(), "state.env"))
	require.NoError(t, err)
	api, err := apiclient.NewClient(srv.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	return newShopper(&terminal.Env{
		Config: &config.ClientConfig{RequestTimeout: 2 * time.Second},
		State:  state,
		API:    api,
		Logger: logger.Nop(),
		Out:    &out,
	}), &out
}

func TestAddPrintsReconciledCart(t *testing.T) {
	store := newFakeStore()
	s, out := newTestShopper(t, store)
	ctx := context.Background()

	require.NoError(t, s.run(ctx, "add", []string{store.product.ID.String(), "3"}))
	assert.Contains(t, out.String(), "PVC-20")
	assert.Contains(t, out.String(), "$37.50")

	out.Reset()
	require.NoError(t, s.run(ctx, "add", []string{store.product.ID.String()}))
	require.NoError(t, s.run(ctx, "cart", nil))
	assert.Contains(t, out.String(), "$50.00")

	// every request used the persisted pseudonymous owner
	owner, err := s.env.State.OwnerID()
	require.NoError(t, err)
	for _, seen := range store.owners {
		assert.Equal(t, owner, seen)
	}
}

func TestRejectedUpdateFallsBackToServerCart(t *testing.T) {
	store := newFakeStore()
	store.rejectPut = true
	s, out := newTestShopper(t, store)
	ctx := context.Background()

	require.NoError(t, s.run(ctx, "add", []string{store.product.ID.String(), "2"}))
	out.Reset()

	require.NoError(t, s.run(ctx, "set", []string{store.product.ID.String(), "900"}))
	assert.Contains(t, out.String(), "$25.00")
	assert.NotContains(t, out.String(), "900")
}

func TestAddUnknownProduct(t *testing.T) {
	s, _ := newTestShopper(t, newFakeStore())
	err := s.run(context.Background(), "add", []string{uuid.NewString()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestRunRejectsBadArguments(t *testing.T) {
	s, _ := newTestShopper(t, newFakeStore())
	ctx := context.Background()
	assert.ErrorIs(t, s.run(ctx, "nope", nil), errUsage)
	assert.ErrorIs(t, s.run(ctx, "login", []string{"-email", "a@b.co"}), errUsage)
	assert.Error(t, s.run(ctx, "product", []string{"not-a-uuid"}))
}

func TestParseItems(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	items, err := parseItems(a.String() + ":5, " + b.String())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0].ProductID)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)

	_, err = parseItems("")
	assert.Error(t, err)
	_, err = parseItems(a.String() + ":0")
	assert.Error(t, err)
	_, err = parseItems("bad:2")
	assert.Error(t, err)
}

func TestThemeAndWhoami(t *testing.T) {
	s, out := newTestShopper(t, newFakeStore())
	require.NoError(t, s.run(context.Background(), "theme", []string{"dark"}))
	require.NoError(t, s.run(context.Background(), "theme", nil))
	assert.Contains(t, out.String(), "dark")

	require.NoError(t, s.run(context.Background(), "whoami", nil))
	assert.Contains(t, out.String(), "anonymous")
	assert.Error(t, s.run(context.Background(), "theme", []string{"blue"}))
}
