package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// QuoteInput is the customer quote request form.
type QuoteInput struct {
	CustomerName  string            `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
	CustomerPhone string            `json:"customer_phone" validate:"required,max=40"`
	CompanyName   *string           `json:"company_name,omitempty" validate:"omitempty,max=200"`
	Items         []types.QuoteItem `json:"items" validate:"required,min=1"`
	Message       string            `json:"message" validate:"max=4000"`
}

// ListParams filters the distributor quote queue.
type ListParams struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

type QuoteDTO struct {
	ID            uuid.UUID         `json:"id"`
	RequestNumber string            `json:"request_number"`
	UserID        *uuid.UUID        `json:"user_id,omitempty"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	CompanyName   *string           `json:"company_name,omitempty"`
	Items         types.QuoteItems  `json:"items"`
	Message       string            `json:"message"`
	Status        enums.QuoteStatus `json:"status"`
	QuotedPrice   *decimal.Decimal  `json:"quoted_price,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type DeclinedQuoteDTO struct {
	ID             uuid.UUID        `json:"id"`
	QuoteRequestID uuid.UUID        `json:"quote_request_id"`
	RequestNumber  string           `json:"request_number"`
	CustomerName   string           `json:"customer_name"`
	CustomerEmail  string           `json:"customer_email"`
	CustomerPhone  string           `json:"customer_phone"`
	CompanyName    *string          `json:"company_name,omitempty"`
	Items          types.QuoteItems `json:"items"`
	Message        string           `json:"message"`
	DeclinedReason string           `json:"declined_reason"`
	DeclinedBy     uuid.UUID        `json:"declined_by"`
	DeclinedAt     time.Time        `json:"declined_at"`
}

func toQuoteDTO(q models.QuoteRequest) QuoteDTO {
	items := q.Items
	if items == nil {
		items = types.QuoteItems{}
	}
	return QuoteDTO{
		ID:            q.ID,
		RequestNumber: q.RequestNumber,
		UserID:        q.UserID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		CustomerPhone: q.CustomerPhone,
		CompanyName:   q.CompanyName,
		Items:         items,
		Message:       q.Message,
		Status:        q.Status,
		QuotedPrice:   q.QuotedPrice,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func toDeclinedDTO(d models.DeclinedQuote) DeclinedQuoteDTO {
	return DeclinedQuoteDTO{
		ID:             d.ID,
		QuoteRequestID: d.QuoteRequestID,
		RequestNumber:  d.RequestNumber,
		CustomerName:   d.CustomerName,
		CustomerEmail:  d.CustomerEmail,
		CustomerPhone:  d.CustomerPhone,
		CompanyName:    d.CompanyName,
		Items:          d.Items,
		Message:        d.Message,
		DeclinedReason: d.DeclinedReason,
		DeclinedBy:     d.DeclinedBy,
		DeclinedAt:     d.DeclinedAt,
	}
}
