package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/orders"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
)

// PlaceOrder converts owner's cart into an order. The idempotency key makes a
// retried submit return the first order instead of placing a second one.
func (c *Client) PlaceOrder(ctx context.Context, owner, idempotencyKey string, input orders.CheckoutInput) (*orders.OrderDTO, error) {
	var out orders.OrderDTO
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/api/v1/orders",
		owner:   owner,
		idemKey: idempotencyKey,
		body:    input,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]orders.OrderDTO, error) {
	var out []orders.OrderDTO
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/me/orders"}, &out)
	return out, err
}

func (c *Client) CancelOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	var out orders.OrderDTO
	if err := c.do(ctx, request{method: http.MethodPost, path: pathID("/api/v1/me/orders/%s/cancel", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, params orders.ListParams) (pagination.Page[orders.OrderDTO], error) {
	var out pagination.Page[orders.OrderDTO]
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/distributor/orders", query: listQuery(params.Status, params.Search, params.Limit, params.Cursor)}, &out)
	return out, err
}

// ListAllOrders walks every page of the distributor order listing.
func (c *Client) ListAllOrders(ctx context.Context) ([]orders.OrderDTO, error) {
	var all []orders.OrderDTO
	params := orders.ListParams{Limit: pagination.MaxLimit}
	for {
		page, err := c.ListOrders(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == "" {
			return all, nil
		}
		params.Cursor = page.NextCursor
	}
}

// GetOrder loads one order with its lines.
func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	var out orders.OrderDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: pathID("/api/v1/distributor/orders/%s", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TransitionOrder(ctx context.Context, id uuid.UUID, status string) (*orders.OrderDTO, error) {
	var out orders.OrderDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathID("/api/v1/distributor/orders/%s/status", id),
		body:   map[string]string{"status": status},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func listQuery(status, search string, limit int, cursor string) url.Values {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if search != "" {
		q.Set("q", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}
