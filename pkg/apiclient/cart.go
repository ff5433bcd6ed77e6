package apiclient

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/cart"
)

// Client implements cart.Remote so a Reconciler can sit on top of the API.
var _ cart.Remote = (*Client)(nil)

type cartItemBody struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

func (c *Client) Load(ctx context.Context, owner string) (*cart.Cart, error) {
	var out cart.Cart
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/cart", owner: owner}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Add(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/cart/items",
		owner:  owner,
		body:   cartItemBody{ProductID: productID, Quantity: qty},
	}, nil)
}

func (c *Client) SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   pathID("/api/v1/cart/items/%s", productID),
		owner:  owner,
		body:   quantityBody{Quantity: qty},
	}, nil)
}

func (c *Client) Remove(ctx context.Context, owner string, productID uuid.UUID) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathID("/api/v1/cart/items/%s", productID), owner: owner}, nil)
}

func (c *Client) Clear(ctx context.Context, owner string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/v1/cart", owner: owner}, nil)
}
