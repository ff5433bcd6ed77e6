package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// Product is the catalog entry. Shoppers only read it; cmd/seed writes it.
type Product struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	CategoryID       *uuid.UUID           `gorm:"column:category_id;type:uuid;index" bson:"category_id,omitempty"`
	SKU              string               `gorm:"column:sku;not null;uniqueIndex:ux_products_sku" bson:"sku"`
	Name             string               `gorm:"column:name;not null" bson:"name"`
	Description      *string              `gorm:"column:description" bson:"description,omitempty"`
	Unit             string               `gorm:"column:unit;not null;default:'each'" bson:"unit"`
	Price            decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null" bson:"price"`
	MinOrderQuantity int                  `gorm:"column:min_order_quantity;not null;default:1" bson:"min_order_quantity"`
	StockQuantity    int                  `gorm:"column:stock_quantity;not null;default:0" bson:"stock_quantity"`
	Specifications   types.Specifications `gorm:"column:specifications;type:jsonb" bson:"specifications,omitempty"`
	IsFeatured       bool                 `gorm:"column:is_featured;not null;default:false" bson:"is_featured"`
	ImagePath        *string              `gorm:"column:image_path" bson:"image_path,omitempty"`
	ImageURL         *string              `gorm:"column:image_url" bson:"image_url,omitempty"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
