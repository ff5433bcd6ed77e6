package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// Order is created once at checkout. Only Status and UpdatedAt change afterwards.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number" bson:"order_number"`
	UserID          *uuid.UUID            `gorm:"column:user_id;type:uuid;index" bson:"user_id,omitempty"`
	OwnerID         string                `gorm:"column:owner_id;not null" bson:"owner_id"`
	CustomerName    string                `gorm:"column:customer_name;not null" bson:"customer_name"`
	CustomerEmail   string                `gorm:"column:customer_email;not null" bson:"customer_email"`
	CustomerPhone   string                `gorm:"column:customer_phone;not null" bson:"customer_phone"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null" bson:"shipping_address"`
	TotalAmount     decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null" bson:"total_amount"`
	Status          enums.OrderStatus     `gorm:"column:status;not null;default:'pending';index" bson:"status"`
	Notes           *string               `gorm:"column:notes" bson:"notes,omitempty"`
	SearchKey       string                `gorm:"column:search_key;not null;default:''" bson:"search_key"`
	Lines           []OrderLine           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" bson:"-"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
