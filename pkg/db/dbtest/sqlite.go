// Package dbtest opens throwaway SQLite databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/conduit-storefront/pkg/db"
)

// NewSQLite returns a migrated in-memory database private to the test. The
// shared cache keeps every pooled connection on the same database; the handle
// is closed on cleanup.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(context.Background(), conn); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection avoids SQLITE_LOCKED between a transaction and background goroutines
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// NewClient wraps NewSQLite in a db.Client.
func NewClient(t testing.TB) *db.Client {
	t.Helper()
	return db.NewFromConn(NewSQLite(t))
}
