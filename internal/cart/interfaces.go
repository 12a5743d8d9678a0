package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface for cart rows.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActive(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindOwned(ctx context.Context, customerID uuid.UUID, cartID int64) (*models.Cart, error)
	FindOrCreateActive(ctx context.Context, customerID uuid.UUID) (*models.Cart, bool, error)
	Create(ctx context.Context, cart *models.Cart) error
	SetActive(ctx context.Context, cartID int64, active bool) error
}

// ItemRepository defines the persistence surface for cart lines.
type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	Merge(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	FindOwnedActive(ctx context.Context, customerID uuid.UUID, itemID int64) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	Delete(ctx context.Context, itemID int64) error
	Clear(ctx context.Context, cartID int64) (int64, error)
	ListEnriched(ctx context.Context, cartID int64) ([]ItemView, error)
}
