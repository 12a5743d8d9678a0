package inventory

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// VariantKey identifies one stock-keeping row.
type VariantKey struct {
	ProductID        int64
	ColorVariationID int64
	SizeVariationID  int64
}

// Repository defines persistence operations for product_inventory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SumAvailable(ctx context.Context, productID int64, colorID, sizeID *int64) (int, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.ProductInventory, error)
	FindByID(ctx context.Context, id int64) (*models.ProductInventory, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, row *models.ProductInventory) (*models.ProductInventory, error)
	Decrement(ctx context.Context, key VariantKey, qty int) (bool, error)
	Increment(ctx context.Context, key VariantKey, qty int) error
}
