package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/products"
)

// ProductQuery selects a product listing. Featured wins over CategoryID.
type ProductQuery struct {
	Featured   bool
	CategoryID *uuid.UUID
	Limit      int
}

func (c *Client) ListCategories(ctx context.Context, limit int) ([]products.CategoryDTO, error) {
	var out []products.CategoryDTO
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/categories", query: limitQuery(limit)}, &out)
	return out, err
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]products.ProductDTO, error) {
	query := limitQuery(q.Limit)
	if q.Featured {
		query.Set("featured", "true")
	} else if q.CategoryID != nil {
		query.Set("category_id", q.CategoryID.String())
	}
	var out []products.ProductDTO
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/products", query: query}, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error) {
	var out products.ProductDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: pathID("/api/v1/products/%s", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
