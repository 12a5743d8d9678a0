package inventory

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var variantColumns = []clause.Column{
	{Name: "product_id"},
	{Name: "product_color_variation_id"},
	{Name: "product_size_variation_id"},
}

type repository struct {
	repo.Base
}

// NewRepository binds the inventory repository to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// SumAvailable totals available_quantity for the product, optionally narrowed
// to one color and/or size. Absent rows sum to zero.
func (r *repository) SumAvailable(ctx context.Context, productID int64, colorID, sizeID *int64) (int, error) {
	query := r.DB(ctx).Model(&models.ProductInventory{}).Where("product_id = ?", productID)
	if colorID != nil {
		query = query.Where("product_color_variation_id = ?", *colorID)
	}
	if sizeID != nil {
		query = query.Where("product_size_variation_id = ?", *sizeID)
	}
	var total int64
	if err := query.Select("COALESCE(SUM(available_quantity), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) ListByProduct(ctx context.Context, productID int64) ([]models.ProductInventory, error) {
	var rows []models.ProductInventory
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("product_color_variation_id ASC, product_size_variation_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.ProductInventory, error) {
	var row models.ProductInventory
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteByID hard-deletes one stock row and reports whether it existed.
func (r *repository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res := r.DB(ctx).Where("id = ?", id).Delete(&models.ProductInventory{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Upsert sets an absolute quantity for the variant, inserting the row if needed.
func (r *repository) Upsert(ctx context.Context, row *models.ProductInventory) (*models.ProductInventory, error) {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   variantColumns,
		DoUpdates: clause.AssignmentColumns([]string{"available_quantity", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.find(ctx, VariantKey{
		ProductID:        row.ProductID,
		ColorVariationID: row.ColorVariationID,
		SizeVariationID:  row.SizeVariationID,
	})
}

// Decrement takes qty units from the variant only if that many are available.
// It reports false when the guard rejected the update or no row exists.
func (r *repository) Decrement(ctx context.Context, key VariantKey, qty int) (bool, error) {
	res := r.DB(ctx).Model(&models.ProductInventory{}).
		Where("product_id = ? AND product_color_variation_id = ? AND product_size_variation_id = ? AND available_quantity >= ?",
			key.ProductID, key.ColorVariationID, key.SizeVariationID, qty).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", qty),
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Increment puts qty units back, creating the row when it was removed.
func (r *repository) Increment(ctx context.Context, key VariantKey, qty int) error {
	row := models.ProductInventory{
		ProductID:         key.ProductID,
		ColorVariationID:  key.ColorVariationID,
		SizeVariationID:   key.SizeVariationID,
		AvailableQuantity: qty,
	}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: variantColumns,
		DoUpdates: clause.Assignments(map[string]any{
			"available_quantity": gorm.Expr("product_inventory.available_quantity + excluded.available_quantity"),
			"updated_at":         gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
}

func (r *repository) find(ctx context.Context, key VariantKey) (*models.ProductInventory, error) {
	var row models.ProductInventory
	err := r.DB(ctx).
		Where("product_id = ? AND product_color_variation_id = ? AND product_size_variation_id = ?",
			key.ProductID, key.ColorVariationID, key.SizeVariationID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
