package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/internal/cart"
	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/internal/users"
	"github.com/angelmondragon/conduit-storefront/pkg/clientstate"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

func writeData(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(types.SuccessEnvelope{Data: data}))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL + "/")
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, errBaseURLRequired)
	_, err = NewClient("localhost:8080")
	assert.Error(t, err)
}

func TestCartLoadSendsOwner(t *testing.T) {
	productID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/cart", r.URL.Path)
		assert.Equal(t, "owner-1", r.Header.Get(headerCartOwner))
		assert.Empty(t, r.Header.Get("Authorization"))
		writeData(t, w, http.StatusOK, cart.Cart{
			OwnerID: "owner-1",
			Lines: []cart.Line{{
				Product:  cart.Product{ID: productID, Name: "PVC 20mm", Price: decimal.RequireFromString("12.50")},
				Quantity: 2,
				Subtotal: decimal.RequireFromString("25.00"),
			}},
			Total: decimal.RequireFromString("25.00"),
			Count: 2,
		})
	})

	got, err := client.Load(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, productID, got.Lines[0].Product.ID)
	assert.True(t, decimal.RequireFromString("25").Equal(got.Total))
}

func TestCartWritesUseItemRoutes(t *testing.T) {
	productID := uuid.New()
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				var body map[string]any
				require.NoError(t, json.Unmarshal(raw, &body))
				assert.EqualValues(t, 3, body["quantity"])
				if r.Method == http.MethodPut {
					assert.NotContains(t, body, "product_id")
				}
			}
		}
		writeData(t, w, http.StatusOK, cart.Cart{})
	})
	ctx := context.Background()

	require.NoError(t, client.Add(ctx, "o", productID, 3))
	require.NoError(t, client.SetQuantity(ctx, "o", productID, 3))
	require.NoError(t, client.Remove(ctx, "o", productID))
	require.NoError(t, client.Clear(ctx, "o"))

	item := "/api/v1/cart/items/" + productID.String()
	assert.Equal(t, []string{
		"POST /api/v1/cart/items",
		"PUT " + item,
		"DELETE " + item,
		"DELETE /api/v1/cart",
	}, seen)
}

func TestErrorEnvelopeBecomesTypedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(types.ErrorEnvelope{Error: types.APIError{
			Code:    string(pkgerrors.CodeStateConflict),
			Message: "order cannot move from \"delivered\" to \"pending\"",
			Details: map[string]any{"from": "delivered", "to": "pending"},
		}})
	})

	_, err := client.TransitionOrder(context.Background(), uuid.New(), "pending")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Contains(t, typed.Message(), "delivered")
	assert.Equal(t, map[string]any{"from": "delivered", "to": "pending"}, typed.Details())
}

func TestNonEnvelopeErrorUsesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := client.ListCategories(context.Background(), 0)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestSessionBearerAndRefresh(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer old-access", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-refresh", body["refresh_token"])
		writeData(t, w, http.StatusOK, map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    900,
			"user":          users.UserDTO{ID: uuid.New(), Email: "d@example.com", Role: enums.UserRoleDistributor},
		})
	}).WithSession(clientstate.Session{AccessToken: "old-access", RefreshToken: "old-refresh"})

	resp, err := client.Refresh(context.Background())
	require.NoError(t, err)
	session := SessionFrom(resp)
	assert.Equal(t, "new-access", session.AccessToken)
	assert.Equal(t, "new-refresh", session.RefreshToken)
	assert.Equal(t, "distributor", session.Role)
	assert.Equal(t, "old-access", client.Session().AccessToken)
}

func TestListAllOrdersFollowsCursor(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("cursor") {
		case "":
			writeData(t, w, http.StatusOK, pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{{ID: first}}, NextCursor: "c1"})
		case "c1":
			writeData(t, w, http.StatusOK, pagination.Page[orders.OrderDTO]{Items: []orders.OrderDTO{{ID: second}}})
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	})

	all, err := client.ListAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID)
	assert.Equal(t, second, all[1].ID)
}

func TestPlaceOrderSendsIdempotencyKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get(headerIdempotencyKey))
		assert.Equal(t, "owner-1", r.Header.Get(headerCartOwner))
		writeData(t, w, http.StatusCreated, orders.OrderDTO{OrderNumber: "ORD-1-ABCDEF"})
	})

	order, err := client.PlaceOrder(context.Background(), "owner-1", "key-1", orders.CheckoutInput{CustomerName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-ABCDEF", order.OrderNumber)
}
