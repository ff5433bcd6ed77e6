package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine snapshots the product at checkout time.
type OrderLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" bson:"order_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null" bson:"product_id"`
	ProductName string          `gorm:"column:product_name;not null" bson:"product_name"`
	ProductSKU  string          `gorm:"column:product_sku;not null" bson:"product_sku"`
	Quantity    int             `gorm:"column:quantity;not null" bson:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" bson:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" bson:"subtotal"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
}
