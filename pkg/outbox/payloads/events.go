package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// OrderPlacedEvent is emitted once a cart has been converted into an order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID       `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	UserID        *uuid.UUID      `json:"userId,omitempty"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	LineCount     int             `json:"lineCount"`
	PlacedAt      time.Time       `json:"placedAt"`
}

// OrderStatusChangedEvent covers distributor transitions and customer cancellations.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedBy   *uuid.UUID        `json:"changedBy,omitempty"`
	ChangedAt   time.Time         `json:"changedAt"`
}

type QuoteSubmittedEvent struct {
	QuoteRequestID uuid.UUID `json:"quoteRequestId"`
	RequestNumber  string    `json:"requestNumber"`
	ContactEmail   string    `json:"contactEmail"`
	ItemCount      int       `json:"itemCount"`
}

// QuoteStatusChangedEvent is shared by the quoted and accepted transitions.
type QuoteStatusChangedEvent struct {
	QuoteRequestID uuid.UUID         `json:"quoteRequestId"`
	RequestNumber  string            `json:"requestNumber"`
	From           enums.QuoteStatus `json:"from"`
	To             enums.QuoteStatus `json:"to"`
	QuotedPrice    *decimal.Decimal  `json:"quotedPrice,omitempty"`
}

type QuoteDeclinedEvent struct {
	QuoteRequestID  uuid.UUID `json:"quoteRequestId"`
	DeclinedQuoteID uuid.UUID `json:"declinedQuoteId"`
	RequestNumber   string    `json:"requestNumber"`
	Reason          string    `json:"reason"`
	DeclinedBy      uuid.UUID `json:"declinedBy"`
	DeclinedAt      time.Time `json:"declinedAt"`
}

// MagicLinkRequestedEvent carries the link a mailer delivers. The raw token
// only lives in the link; the store keeps its hash.
type MagicLinkRequestedEvent struct {
	Email     string    `json:"email"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UserRegisteredEvent struct {
	UserID uuid.UUID      `json:"userId"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
	Method string         `json:"method"`
}
