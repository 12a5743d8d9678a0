// Package dbtest opens isolated sqlite databases with the service schema for
// package tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Open returns a fresh in-memory database migrated with every model.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:storefront_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

// Client wraps Open in the runtime client so services get a real WithTx.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromGorm(Open(t))
}

// SeedCustomer inserts a customer and returns its id.
func SeedCustomer(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	customer := models.Customer{
		ID:    uuid.New(),
		Name:  "Test Customer",
		Email: uuid.NewString() + "@example.com",
	}
	require.NoError(t, conn.Create(&customer).Error)
	return customer.ID
}

// SeedProduct inserts an active product with the given selling price.
func SeedProduct(t *testing.T, conn *gorm.DB, name string, price string) models.Product {
	t.Helper()
	product := models.Product{
		Name:           name,
		SellingPrice:   decimal.RequireFromString(price),
		MRP:            decimal.RequireFromString(price),
		ThumbnailImage: []byte(`{"url":"https://cdn.example.com/` + name + `.jpg"}`),
		Status:         enums.ProductStatusActive,
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

// SeedVariants inserts one color and one size variation.
func SeedVariants(t *testing.T, conn *gorm.DB, color string, size string) (models.ProductColorVariation, models.ProductSizeVariation) {
	t.Helper()
	c := models.ProductColorVariation{Color: color}
	require.NoError(t, conn.Create(&c).Error)
	s := models.ProductSizeVariation{Type: enums.SizeTypeTopwear, Size: []byte(`"` + size + `"`)}
	require.NoError(t, conn.Create(&s).Error)
	return c, s
}

// SeedStock sets available stock for one variant.
func SeedStock(t *testing.T, conn *gorm.DB, productID, colorID, sizeID int64, qty int) {
	t.Helper()
	row := models.ProductInventory{
		ProductID:         productID,
		ColorVariationID:  colorID,
		SizeVariationID:   sizeID,
		AvailableQuantity: qty,
	}
	require.NoError(t, conn.Create(&row).Error)
}
