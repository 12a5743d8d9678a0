package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestCartMigrationEnforcesSingleActiveCartAndItemTuple(t *testing.T) {
	content := readMigration(t, "create_carts")

	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_active_customer",
		"ON carts (customer_id) WHERE is_active",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_variant",
		"ON cart_items (cart_id, product_id, product_color_variation_id, product_size_variation_id)",
		"CHECK (quantity >= 1)",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS carts",
	} {
		require.Contains(t, content, sub)
	}
}

func TestInventoryMigrationFloorsAtZero(t *testing.T) {
	content := readMigration(t, "create_product_inventory")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS product_inventory",
		"CHECK (available_quantity >= 0)",
		"ux_product_inventory_variant",
		"DROP TABLE IF EXISTS product_inventory",
	} {
		require.Contains(t, content, sub)
	}
}

func TestOrdersMigrationDefinesEnumsAndTombstone(t *testing.T) {
	content := readMigration(t, "create_orders")

	for _, sub := range []string{
		"CREATE TYPE order_status AS ENUM ('pending', 'shipped', 'delivered', 'cancelled', 'returned')",
		"CREATE TYPE payment_status AS ENUM ('pending', 'paid', 'pending-refund', 'refunded')",
		"deleted_at timestamptz",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
	} {
		require.Contains(t, content, sub)
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename")
}

func TestValidateDirRejectsEmptyDir(t *testing.T) {
	require.Error(t, ValidateDir(t.TempDir()))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 10, 11, 12, 0, time.UTC)

	path, err := createSQLMigrationAt(dir, "Add Order Notes!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260302101112_add_order_notes.sql"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "-- +goose Up"))
	require.NoError(t, ValidateDir(dir))

	_, err = createSQLMigrationAt(dir, "add order notes", now)
	require.Error(t, err)
}

func TestOutboxDLQMigration(t *testing.T) {
	content := readMigration(t, "create_outbox_dlq")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"payload_json jsonb NOT NULL",
		"CHECK (error_reason IN ('non_retryable', 'max_attempts'))",
		"DROP TABLE IF EXISTS outbox_dlq",
	} {
		require.Contains(t, content, sub)
	}
}

func TestValidateDirRejectsBrokenAnnotations(t *testing.T) {
	cases := map[string]string{
		"missing down":   "-- +goose Up\nSELECT 1;\n",
		"down before up": "-- +goose Down\nSELECT 1;\n-- +goose Up\n",
		"two ups":        "-- +goose Up\n-- +goose Up\n-- +goose Down\n",
		"open block":     "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"stray end":      "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301000000_broken.sql"), []byte(body), 0o644))
			require.Error(t, ValidateDir(dir))
		})
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301000000_a.sql"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301000000_b.sql"), body, 0o644))

	err := ValidateDir(dir)
	require.ErrorContains(t, err, "duplicate migration version 20260301000000")
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "add_order_notes", slugify("  Add Order-Notes!! "))
	require.Empty(t, slugify("!!!"))
}
