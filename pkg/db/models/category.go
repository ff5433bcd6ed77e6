package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products on the storefront landing page.
type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" bson:"_id"`
	Name        string    `gorm:"column:name;not null" bson:"name"`
	Description *string   `gorm:"column:description" bson:"description,omitempty"`
	ImageURL    *string   `gorm:"column:image_url" bson:"image_url,omitempty"`
	SortOrder   int       `gorm:"column:sort_order;not null;default:0" bson:"sort_order"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" bson:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" bson:"updated_at"`
}
