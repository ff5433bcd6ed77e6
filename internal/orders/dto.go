package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// CheckoutInput is the contact and shipping data collected at checkout.
type CheckoutInput struct {
	CustomerName    string                `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string                `json:"customer_email" validate:"required,email"`
	CustomerPhone   string                `json:"customer_phone" validate:"required,max=40"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	Notes           *string               `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ListParams filters the distributor order list.
type ListParams struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

type OrderLineDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	UserID          *uuid.UUID            `json:"user_id,omitempty"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	Status          enums.OrderStatus     `json:"status"`
	Notes           *string               `json:"notes,omitempty"`
	Lines           []OrderLineDTO        `json:"lines,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func toOrderDTO(o models.Order, lines []models.OrderLine) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if len(lines) > 0 {
		dto.Lines = make([]OrderLineDTO, 0, len(lines))
		for _, l := range lines {
			dto.Lines = append(dto.Lines, OrderLineDTO{
				ID:          l.ID,
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				ProductSKU:  l.ProductSKU,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Subtotal:    l.Subtotal,
			})
		}
	}
	return dto
}
