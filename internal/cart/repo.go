package cart

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveCartIndex is the partial unique index that allows one active cart per
// customer.
const ActiveCartIndex = "ux_carts_active_customer"

// Repository exposes persistence operations for carts.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// FindActive loads the customer's active cart.
func (r *Repository) FindActive(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB(ctx).
		Where("customer_id = ? AND is_active = ?", customerID, true).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOwned loads a cart by id, restricted to the customer, active or not.
func (r *Repository) FindOwned(ctx context.Context, customerID uuid.UUID, cartID int64) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB(ctx).
		Where("id = ? AND customer_id = ?", cartID, customerID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindOrCreateActive inserts an active cart unless the partial unique index
// already holds one, then reads back whichever row won. The bool reports
// whether this call inserted it.
func (r *Repository) FindOrCreateActive(ctx context.Context, customerID uuid.UUID) (*models.Cart, bool, error) {
	candidate := models.Cart{CustomerID: customerID, IsActive: true}
	res := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "customer_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "is_active"}}},
		DoNothing:   true,
	}).Create(&candidate)
	if res.Error != nil {
		return nil, false, res.Error
	}
	cart, err := r.FindActive(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	return cart, res.RowsAffected == 1, nil
}

// Create inserts a cart as given. A second active cart fails on the index.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Create(cart).Error
}

// SetActive flips is_active on one cart.
func (r *Repository) SetActive(ctx context.Context, cartID int64, active bool) error {
	return r.DB(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("is_active", active).Error
}
