package main

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/types"
)

// seedNamespace derives stable ids so a rerun updates rows instead of adding them.
var seedNamespace = uuid.MustParse("6f1c2d8e-4b7a-4f3e-9a51-2c0d7e8b9f10")

func seedID(kind, key string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key))
}

type categorySeed struct {
	name        string
	description string
	sortOrder   int
}

type productSeed struct {
	category string
	sku      string
	name     string
	unit     string
	price    string
	minQty   int
	stock    int
	featured bool
	image    string
	specs    types.Specifications
}

var categorySeeds = []categorySeed{
	{name: "PVC Conduit", description: "Rigid and schedule 40/80 PVC for underground and wet locations.", sortOrder: 1},
	{name: "EMT Conduit", description: "Electrical metallic tubing for exposed indoor runs.", sortOrder: 2},
	{name: "Flexible Conduit", description: "Liquid-tight and flexible metal conduit for motors and equipment.", sortOrder: 3},
	{name: "Fittings & Boxes", description: "Couplings, connectors, straps and junction boxes.", sortOrder: 4},
}

var productSeeds = []productSeed{
	{category: "PVC Conduit", sku: "PVC-S40-050", name: "PVC Schedule 40 Conduit 1/2\" x 10'", unit: "stick", price: "4.85", minQty: 10, stock: 1200, featured: true, image: "products/pvc-s40-050.jpg",
		specs: types.Specifications{"trade_size": "1/2\"", "length_ft": 10, "schedule": "40"}},
	{category: "PVC Conduit", sku: "PVC-S80-100", name: "PVC Schedule 80 Conduit 1\" x 10'", unit: "stick", price: "11.40", minQty: 5, stock: 640,
		specs: types.Specifications{"trade_size": "1\"", "length_ft": 10, "schedule": "80"}},
	{category: "EMT Conduit", sku: "EMT-075", name: "EMT Conduit 3/4\" x 10'", unit: "stick", price: "9.20", minQty: 10, stock: 900, featured: true, image: "products/emt-075.jpg",
		specs: types.Specifications{"trade_size": "3/4\"", "length_ft": 10, "material": "galvanized steel"}},
	{category: "EMT Conduit", sku: "EMT-200", name: "EMT Conduit 2\" x 10'", unit: "stick", price: "27.95", minQty: 1, stock: 180,
		specs: types.Specifications{"trade_size": "2\"", "length_ft": 10, "material": "galvanized steel"}},
	{category: "Flexible Conduit", sku: "LFMC-050", name: "Liquid-Tight Flexible Metal Conduit 1/2\"", unit: "ft", price: "1.35", minQty: 25, stock: 5000, featured: true,
		specs: types.Specifications{"trade_size": "1/2\"", "jacket": "PVC", "rated": "UL 360"}},
	{category: "Flexible Conduit", sku: "FMC-038", name: "Flexible Metal Conduit 3/8\"", unit: "ft", price: "0.78", minQty: 50, stock: 8000,
		specs: types.Specifications{"trade_size": "3/8\"", "material": "aluminum"}},
	{category: "Fittings & Boxes", sku: "BOX-4SQ", name: "4\" Square Junction Box, 2-1/8\" Deep", unit: "each", price: "3.60", minQty: 1, stock: 750,
		specs: types.Specifications{"knockouts": "1/2\", 3/4\"", "material": "steel"}},
	{category: "Fittings & Boxes", sku: "CPL-EMT-075", name: "EMT Set-Screw Coupling 3/4\"", unit: "each", price: "0.62", minQty: 25, stock: 4000,
		specs: types.Specifications{"trade_size": "3/4\"", "material": "zinc die-cast"}},
}

func (c categorySeed) model() *models.Category {
	desc := c.description
	return &models.Category{
		ID:          seedID("category", c.name),
		Name:        c.name,
		Description: &desc,
		SortOrder:   c.sortOrder,
	}
}

func (p productSeed) model() *models.Product {
	categoryID := seedID("category", p.category)
	out := &models.Product{
		ID:               seedID("product", p.sku),
		CategoryID:       &categoryID,
		SKU:              p.sku,
		Name:             p.name,
		Unit:             p.unit,
		Price:            decimal.RequireFromString(p.price),
		MinOrderQuantity: p.minQty,
		StockQuantity:    p.stock,
		Specifications:   p.specs,
		IsFeatured:       p.featured,
	}
	if p.image != "" {
		path := p.image
		out.ImagePath = &path
	}
	return out
}
