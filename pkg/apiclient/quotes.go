package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/internal/quotes"
	"github.com/angelmondragon/conduit-storefront/pkg/pagination"
)

func (c *Client) SubmitQuote(ctx context.Context, idempotencyKey string, input quotes.QuoteInput) (*quotes.QuoteDTO, error) {
	var out quotes.QuoteDTO
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/v1/quotes", idemKey: idempotencyKey, body: input}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyQuotes(ctx context.Context) ([]quotes.QuoteDTO, error) {
	var out []quotes.QuoteDTO
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/me/quotes"}, &out)
	return out, err
}

func (c *Client) ListQuotes(ctx context.Context, params quotes.ListParams) (pagination.Page[quotes.QuoteDTO], error) {
	var out pagination.Page[quotes.QuoteDTO]
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/distributor/quotes", query: listQuery(params.Status, params.Search, params.Limit, params.Cursor)}, &out)
	return out, err
}

// ListAllQuotes walks every page of the active quote queue.
func (c *Client) ListAllQuotes(ctx context.Context) ([]quotes.QuoteDTO, error) {
	var all []quotes.QuoteDTO
	params := quotes.ListParams{Limit: pagination.MaxLimit}
	for {
		page, err := c.ListQuotes(ctx, params)
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

func (c *Client) GetQuote(ctx context.Context, id uuid.UUID) (*quotes.QuoteDTO, error) {
	var out quotes.QuoteDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: pathID("/api/v1/distributor/quotes/%s", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetQuoted(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*quotes.QuoteDTO, error) {
	return c.quoteAction(ctx, id, "quote", map[string]any{"quoted_price": price})
}

func (c *Client) AcceptQuote(ctx context.Context, id uuid.UUID) (*quotes.QuoteDTO, error) {
	return c.quoteAction(ctx, id, "accept", nil)
}

func (c *Client) DeclineQuote(ctx context.Context, id uuid.UUID, reason string) (*quotes.DeclinedQuoteDTO, error) {
	var out quotes.DeclinedQuoteDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathID("/api/v1/distributor/quotes/%s/decline", id),
		body:   map[string]string{"reason": reason},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDeclined(ctx context.Context, search string) ([]quotes.DeclinedQuoteDTO, error) {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	var out []quotes.DeclinedQuoteDTO
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/distributor/declined-quotes", query: q}, &out)
	return out, err
}

func (c *Client) GetDeclined(ctx context.Context, id uuid.UUID) (*quotes.DeclinedQuoteDTO, error) {
	var out quotes.DeclinedQuoteDTO
	if err := c.do(ctx, request{method: http.MethodGet, path: pathID("/api/v1/distributor/declined-quotes/%s", id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) quoteAction(ctx context.Context, id uuid.UUID, action string, body any) (*quotes.QuoteDTO, error) {
	var out quotes.QuoteDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathID("/api/v1/distributor/quotes/%s/", id) + action,
		body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
