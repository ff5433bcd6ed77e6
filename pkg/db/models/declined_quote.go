package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// DeclinedQuote archives a quote request at the moment it was declined.
type DeclinedQuote struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	QuoteRequestID uuid.UUID        `gorm:"column:quote_request_id;type:uuid;not null;uniqueIndex:ux_declined_quotes_quote_request" bson:"quote_request_id"`
	RequestNumber  string           `gorm:"column:request_number;not null" bson:"request_number"`
	CustomerName   string           `gorm:"column:customer_name;not null" bson:"customer_name"`
	CustomerEmail  string           `gorm:"column:customer_email;not null" bson:"customer_email"`
	CustomerPhone  string           `gorm:"column:customer_phone;not null" bson:"customer_phone"`
	CompanyName    *string          `gorm:"column:company_name" bson:"company_name,omitempty"`
	Items          types.QuoteItems `gorm:"column:items;type:jsonb;not null" bson:"items"`
	Message        string           `gorm:"column:message;not null;default:''" bson:"message"`
	DeclinedReason string           `gorm:"column:declined_reason;not null" bson:"declined_reason"`
	DeclinedBy     uuid.UUID        `gorm:"column:declined_by;type:uuid;not null" bson:"declined_by"`
	DeclinedAt     time.Time        `gorm:"column:declined_at;not null;index" bson:"declined_at"`
	SearchKey      string           `gorm:"column:search_key;not null;default:''" bson:"search_key"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
}
