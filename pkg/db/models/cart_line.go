package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one persisted (owner, product) pair. The pair is unique.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	OwnerID   string    `gorm:"column:owner_id;not null;uniqueIndex:ux_cart_lines_owner_product,priority:1" bson:"owner_id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_lines_owner_product,priority:2" bson:"product_id"`
	Quantity  int       `gorm:"column:quantity;not null" bson:"quantity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
