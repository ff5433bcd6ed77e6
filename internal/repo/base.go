package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/pkg/db"
)

// Base provides a shared foundation for the GORM repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(conn *gorm.DB) Base {
	return Base{db: conn}
}

// DB returns the transaction carried on ctx, or the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, b.db)
}

// Dialect names the SQL dialect so queries can opt into Postgres-only clauses.
func (b Base) Dialect() string {
	if b.db == nil || b.db.Dialector == nil {
		return ""
	}
	return b.db.Dialector.Name()
}
