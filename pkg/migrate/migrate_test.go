package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsValidate(t *testing.T) {
	require.NoError(t, ValidateDir(Migrations, embeddedDir))
}

func TestMigrationsCreateEverySchemaObject(t *testing.T) {
	var all strings.Builder
	require.NoError(t, fs.WalkDir(Migrations, embeddedDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(Migrations, p)
		if err != nil {
			return err
		}
		all.Write(b)
		return nil
	}))
	content := all.String()

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE TABLE IF NOT EXISTS cart_lines",
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"CREATE TABLE IF NOT EXISTS quote_requests",
		"CREATE TABLE IF NOT EXISTS declined_quotes",
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_lines_owner_product",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_quote_requests_request_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email",
	} {
		assert.Contains(t, content, stmt)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	good := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/2026_bad.sql": {Data: []byte(good)},
		},
		"duplicate version": {
			"m/20260101000000_a.sql": {Data: []byte(good)},
			"m/20260101000000_b.sql": {Data: []byte(good)},
		},
		"missing down": {
			"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"empty": {
			"m/readme.txt": {Data: []byte("x")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateDir(fsys, "m"))
		})
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Product Tags!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_product_tags.sql"))
	require.NoError(t, ValidateDir(os.DirFS(dir), "."))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
	_, err = CreateSQLMigration(filepath.Join(dir, "nested"), "")
	assert.Error(t, err)
}
