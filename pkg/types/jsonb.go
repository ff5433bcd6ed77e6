package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ShippingAddress is stored as a JSON document on the order row.
type ShippingAddress struct {
	Street  string `json:"street" bson:"street" validate:"required"`
	City    string `json:"city" bson:"city" validate:"required"`
	State   string `json:"state" bson:"state" validate:"required"`
	Zip     string `json:"zip" bson:"zip" validate:"required"`
	Country string `json:"country" bson:"country"`
}

const DefaultCountry = "United States"

// Normalize trims every field and applies the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

func (a ShippingAddress) Value() (driver.Value, error) {
	return marshalJSONValue(a)
}

func (a *ShippingAddress) Scan(value interface{}) error {
	return scanJSONValue("shipping address", value, a)
}

// QuoteItem is one requested product on a quote request.
type QuoteItem struct {
	ProductID   uuid.UUID `json:"product_id" bson:"product_id"`
	ProductName string    `json:"product_name" bson:"product_name"`
	Quantity    int       `json:"quantity" bson:"quantity"`
}

// QuoteItems keeps request order.
type QuoteItems []QuoteItem

func (q QuoteItems) Value() (driver.Value, error) {
	if q == nil {
		q = QuoteItems{}
	}
	return marshalJSONValue([]QuoteItem(q))
}

func (q *QuoteItems) Scan(value interface{}) error {
	if value == nil {
		*q = QuoteItems{}
		return nil
	}
	return scanJSONValue("quote items", value, (*[]QuoteItem)(q))
}

// Specifications is a free-form attribute map shown on product pages.
type Specifications map[string]any

func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return marshalJSONValue(map[string]any(s))
}

func (s *Specifications) Scan(value interface{}) error {
	if value == nil {
		*s = Specifications{}
		return nil
	}
	return scanJSONValue("specifications", value, (*map[string]any)(s))
}

func marshalJSONValue(v any) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func scanJSONValue(label string, value interface{}, dest any) error {
	raw, ok := scanString(value)
	if !ok {
		return fmt.Errorf("%s: unsupported scan type %T", label, value)
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("%s: decode %w", label, err)
	}
	return nil
}

func scanString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
