package db

import (
	"context"
	"fmt"

	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"gorm.io/gorm"
)

// Tables lists every model the storefront persists through GORM.
func Tables() []any {
	return []any{
		&models.Category{},
		&models.Product{},
		&models.CartLine{},
		&models.User{},
		&models.Order{},
		&models.OrderLine{},
		&models.QuoteRequest{},
		&models.DeclinedQuote{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// AutoMigrate creates the schema from the models. Postgres deployments use the
// goose migrations instead; this path serves SQLite dev databases and tests.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
