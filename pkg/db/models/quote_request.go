package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// QuoteRequest is a customer bulk-pricing inquiry.
type QuoteRequest struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	RequestNumber string            `gorm:"column:request_number;not null;uniqueIndex:ux_quote_requests_request_number" bson:"request_number"`
	UserID        *uuid.UUID        `gorm:"column:user_id;type:uuid;index" bson:"user_id,omitempty"`
	CustomerName  string            `gorm:"column:customer_name;not null" bson:"customer_name"`
	CustomerEmail string            `gorm:"column:customer_email;not null" bson:"customer_email"`
	CustomerPhone string            `gorm:"column:customer_phone;not null" bson:"customer_phone"`
	CompanyName   *string           `gorm:"column:company_name" bson:"company_name,omitempty"`
	Items         types.QuoteItems  `gorm:"column:items;type:jsonb;not null" bson:"items"`
	Message       string            `gorm:"column:message;not null;default:''" bson:"message"`
	Status        enums.QuoteStatus `gorm:"column:status;not null;default:'pending';index" bson:"status"`
	QuotedPrice   *decimal.Decimal  `gorm:"column:quoted_price;type:numeric(12,2)" bson:"quoted_price,omitempty"`
	SearchKey     string            `gorm:"column:search_key;not null;default:''" bson:"search_key"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
