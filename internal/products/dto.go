package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// ProductDTO is the storefront product payload. ImageURL is already resolved.
type ProductDTO struct {
	ID               uuid.UUID            `json:"id"`
	CategoryID       *uuid.UUID           `json:"category_id,omitempty"`
	SKU              string               `json:"sku"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	Unit             string               `json:"unit"`
	Price            decimal.Decimal      `json:"price"`
	MinOrderQuantity int                  `json:"min_order_quantity"`
	StockQuantity    int                  `json:"stock_quantity"`
	Specifications   types.Specifications `json:"specifications"`
	IsFeatured       bool                 `json:"is_featured"`
	ImageURL         string               `json:"image_url"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	SortOrder   int       `json:"sort_order"`
}

func toProductDTO(p models.Product, imageURL string) ProductDTO {
	specs := p.Specifications
	if specs == nil {
		specs = types.Specifications{}
	}
	return ProductDTO{
		ID:               p.ID,
		CategoryID:       p.CategoryID,
		SKU:              p.SKU,
		Name:             p.Name,
		Description:      deref(p.Description),
		Unit:             p.Unit,
		Price:            p.Price,
		MinOrderQuantity: p.MinOrderQuantity,
		StockQuantity:    p.StockQuantity,
		Specifications:   specs,
		IsFeatured:       p.IsFeatured,
		ImageURL:         imageURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: deref(c.Description),
		ImageURL:    deref(c.ImageURL),
		SortOrder:   c.SortOrder,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
