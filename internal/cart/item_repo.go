package cart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemView is a cart line joined with its product, color and size rows. The
// joins are LEFT so a line survives catalog removals with empty display data.
type ItemView struct {
	ID               int64               `json:"id" gorm:"column:id"`
	CartID           int64               `json:"cart_id" gorm:"column:cart_id"`
	ProductID        int64               `json:"product_id" gorm:"column:product_id"`
	ColorVariationID int64               `json:"color_variation_id" gorm:"column:product_color_variation_id"`
	SizeVariationID  int64               `json:"size_variation_id" gorm:"column:product_size_variation_id"`
	Quantity         int                 `json:"quantity" gorm:"column:quantity"`
	ProductName      *string             `json:"product_name" gorm:"column:product_name"`
	SellingPrice     decimal.NullDecimal `json:"selling_price" gorm:"column:selling_price"`
	MRP              decimal.NullDecimal `json:"mrp" gorm:"column:mrp"`
	ThumbnailImage   json.RawMessage     `json:"thumbnail_image,omitempty" gorm:"column:thumbnail_image"`
	Color            *string             `json:"color" gorm:"column:color"`
	SizeType         *string             `json:"size_type" gorm:"column:size_type"`
	Size             json.RawMessage     `json:"size,omitempty" gorm:"column:size"`
	CreatedAt        time.Time           `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"column:updated_at"`
}

const enrichedItemsQuery = `
SELECT ci.id,
       ci.cart_id,
       ci.product_id,
       ci.product_color_variation_id,
       ci.product_size_variation_id,
       ci.quantity,
       ci.created_at,
       ci.updated_at,
       p.name AS product_name,
       p.selling_price,
       p.mrp,
       p.thumbnail_image,
       c.color,
       s.type AS size_type,
       s.size
FROM cart_items ci
LEFT JOIN products p ON p.id = ci.product_id
LEFT JOIN product_color_variations c ON c.id = ci.product_color_variation_id
LEFT JOIN product_size_variations s ON s.id = ci.product_size_variation_id
WHERE ci.cart_id = ?
ORDER BY ci.id ASC
`

var itemTupleColumns = []clause.Column{
	{Name: "cart_id"},
	{Name: "product_id"},
	{Name: "product_color_variation_id"},
	{Name: "product_size_variation_id"},
}

// itemRepository manages persistent cart items.
type itemRepository struct {
	repo.Base
}

// NewItemRepository binds the repository to the provided DB handle.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{Base: repo.NewBase(db)}
}

// WithTx scopes the repository to the provided transaction.
func (r *itemRepository) WithTx(tx *gorm.DB) ItemRepository {
	if tx == nil {
		return r
	}
	return &itemRepository{Base: repo.NewBase(tx)}
}

// Merge inserts the line or, when the tuple already exists in the cart, adds
// the requested quantity to it in the same statement. The stored row is
// returned.
func (r *itemRepository) Merge(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns: itemTupleColumns,
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}

	var stored models.CartItem
	err = r.DB(ctx).
		Where("cart_id = ? AND product_id = ? AND product_color_variation_id = ? AND product_size_variation_id = ?",
			item.CartID, item.ProductID, item.ColorVariationID, item.SizeVariationID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindOwnedActive loads the item only if it sits in the customer's active
// cart. Items in other customers' carts read as not found.
func (r *itemRepository) FindOwnedActive(ctx context.Context, customerID uuid.UUID, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.customer_id = ? AND carts.is_active = ?", itemID, customerID, true).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	return r.DB(ctx).Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

func (r *itemRepository) Delete(ctx context.Context, itemID int64) error {
	return r.DB(ctx).Where("id = ?", itemID).Delete(&models.CartItem{}).Error
}

// Clear removes every line in the cart and returns how many went.
func (r *itemRepository) Clear(ctx context.Context, cartID int64) (int64, error) {
	res := r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *itemRepository) ListEnriched(ctx context.Context, cartID int64) ([]ItemView, error) {
	var rows []ItemView
	if err := r.DB(ctx).Raw(enrichedItemsQuery, cartID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
