package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/internal/products"
	"github.com/angelmondragon/conduit-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

type fixture struct {
	conn     *gorm.DB
	svc      Service
	products []models.Product
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.NewSQLite(t)
	catalog := []models.Product{
		{ID: uuid.New(), SKU: "PVC-20", Name: "PVC Conduit 20mm", Unit: "m", Price: decimal.RequireFromString("2.50")},
		{ID: uuid.New(), SKU: "MET-25", Name: "Metal Conduit 25mm", Unit: "m", Price: decimal.RequireFromString("7.25")},
		{ID: uuid.New(), SKU: "BOX-01", Name: "Junction Box", Unit: "each", Price: decimal.RequireFromString("4.10")},
	}
	require.NoError(t, conn.Create(&catalog).Error)

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, products: catalog}
}

func (f fixture) snapshot(i int) Product {
	return snapshot(&f.products[i])
}

func quantities(lines []Line) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		out[line.Product.ID] = line.Quantity
	}
	return out
}
