package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot a cart line displays and prices with.
type Product struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Unit     string          `json:"unit"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
}

// Line is one product in a cart with its quantity.
type Line struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Cart is the resolved cart for one owner. Total and Count are derived from Lines.
type Cart struct {
	OwnerID string          `json:"owner_id"`
	Lines   []Line          `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

// Totals computes Σ price×qty and Σ qty over lines.
func Totals(lines []Line) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, line := range lines {
		total = total.Add(line.Product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		count += line.Quantity
	}
	return total, count
}

func newCart(owner string, lines []Line) Cart {
	if lines == nil {
		lines = []Line{}
	}
	for i := range lines {
		lines[i].Subtotal = lines[i].Product.Price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
	}
	total, count := Totals(lines)
	return Cart{OwnerID: owner, Lines: lines, Total: total, Count: count}
}
