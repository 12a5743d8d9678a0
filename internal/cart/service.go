package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outcome tags what AddItem did to the cart line.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeMerged  Outcome = "merged"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart and cart line operations for the authenticated customer.
type Service interface {
	GetActiveCart(ctx context.Context, customerID uuid.UUID) (*CartView, error)
	CreateCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	FindOrCreateActiveCart(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Cart, error)
	DeactivateCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	SetCartActive(ctx context.Context, customerID uuid.UUID, cartID int64, active bool) (*models.Cart, error)

	AddItem(ctx context.Context, input AddItemInput) (*AddItemResult, error)
	UpdateItemQuantity(ctx context.Context, customerID uuid.UUID, itemID int64, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, customerID uuid.UUID, itemID int64) error
	ClearCart(ctx context.Context, customerID uuid.UUID, cartID int64) (int64, error)
	ListItems(ctx context.Context, customerID uuid.UUID, cartID int64) ([]ItemView, error)

	LoadItems(ctx context.Context, tx *gorm.DB, cartID int64) ([]ItemView, error)
	ClearItems(ctx context.Context, tx *gorm.DB, cartID int64) (int64, error)
}

// CartView is a cart with its enriched lines.
type CartView struct {
	models.Cart
	Items []ItemView `json:"items"`
}

// AddItemInput identifies the variant to add and how many units.
type AddItemInput struct {
	CustomerID       uuid.UUID
	ProductID        int64
	ColorVariationID int64
	SizeVariationID  int64
	Quantity         int
}

type AddItemResult struct {
	Item        models.CartItem `json:"item"`
	Outcome     Outcome         `json:"outcome"`
	CartCreated bool            `json:"cart_created"`
}

type service struct {
	carts   CartRepository
	items   ItemRepository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.CommerceMetrics
}

// NewService builds a cart service backed by the provided stack. A nil
// metrics value is allowed.
func NewService(carts CartRepository, items ItemRepository, tx txRunner, logg *logger.Logger, m *metrics.CommerceMetrics) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("cart item repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:   carts,
		items:   items,
		tx:      tx,
		logg:    logg,
		metrics: m,
	}, nil
}

// GetActiveCart returns the active cart and its lines. It never creates one.
func (s *service) GetActiveCart(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart, err := s.carts.FindActive(ctx, customerID)
	if err != nil {
		return nil, notFoundOr(err, "active cart not found", "load active cart")
	}
	items, err := s.items.ListEnriched(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return &CartView{Cart: *cart, Items: nonNil(items)}, nil
}

func (s *service) CreateCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart := &models.Cart{CustomerID: customerID, IsActive: true}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.carts.WithTx(tx)
		if _, err := repo.FindActive(ctx, customerID); err == nil {
			return activeCartConflict()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active cart")
		}
		if err := repo.Create(ctx, cart); err != nil {
			if db.IsUniqueViolation(err, ActiveCartIndex) {
				return activeCartConflict()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncCartCreated()
	s.logg.Info(s.logg.WithCart(ctx, cart.ID), "cart.created")
	return cart, nil
}

// FindOrCreateActiveCart runs on tx when one is supplied so checkout can share
// the order transaction.
func (s *service) FindOrCreateActiveCart(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cart, created, err := s.carts.WithTx(tx).FindOrCreateActive(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find or create active cart")
	}
	if created {
		s.metrics.IncCartCreated()
		s.logg.Info(s.logg.WithCart(ctx, cart.ID), "cart.created")
	}
	return cart, nil
}

func (s *service) DeactivateCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.carts.WithTx(tx)
		found, err := repo.FindActive(ctx, customerID)
		if err != nil {
			return notFoundOr(err, "active cart not found", "load active cart")
		}
		if err := repo.SetActive(ctx, found.ID, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate cart")
		}
		found.IsActive = false
		cart = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithCart(ctx, cart.ID), "cart.deactivated")
	return cart, nil
}

// SetCartActive toggles one of the customer's carts. Activating a cart while
// another is active is a conflict.
func (s *service) SetCartActive(ctx context.Context, customerID uuid.UUID, cartID int64, active bool) (*models.Cart, error) {
	if customerID == uuid.Nil || cartID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and cart id are required")
	}
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.carts.WithTx(tx)
		found, err := repo.FindOwned(ctx, customerID, cartID)
		if err != nil {
			return notFoundOr(err, "cart not found", "load cart")
		}
		cart = found
		if found.IsActive == active {
			return nil
		}
		if active {
			current, err := repo.FindActive(ctx, customerID)
			if err == nil && current.ID != found.ID {
				return activeCartConflict()
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active cart")
			}
		}
		if err := repo.SetActive(ctx, found.ID, active); err != nil {
			if db.IsUniqueViolation(err, ActiveCartIndex) {
				return activeCartConflict()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart")
		}
		found.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem finds or creates the active cart and merges the line into it in a
// single transaction.
func (s *service) AddItem(ctx context.Context, input AddItemInput) (*AddItemResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateAddItem(input); err != nil {
		return nil, err
	}

	var result AddItemResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cart, created, err := s.carts.WithTx(tx).FindOrCreateActive(ctx, input.CustomerID)
		if _, ok := db.ForeignKeyViolation(err); ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find or create active cart")
		}
		stored, err := s.items.WithTx(tx).Merge(ctx, &models.CartItem{
			CartID:           cart.ID,
			ProductID:        input.ProductID,
			ColorVariationID: input.ColorVariationID,
			SizeVariationID:  input.SizeVariationID,
			Quantity:         input.Quantity,
		})
		if constraint, ok := db.ForeignKeyViolation(err); ok {
			return unknownReference(input, constraint)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item")
		}
		result = AddItemResult{Item: *stored, Outcome: OutcomeCreated, CartCreated: created}
		// Stored quantities are at least 1, so exceeding the request means an
		// existing row absorbed it.
		if stored.Quantity > input.Quantity {
			result.Outcome = OutcomeMerged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.CartCreated {
		s.metrics.IncCartCreated()
	}
	s.metrics.IncCartItemWrite(string(result.Outcome))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cart_id":      result.Item.CartID,
		"cart_item_id": result.Item.ID,
		"outcome":      string(result.Outcome),
		"quantity":     result.Item.Quantity,
	})
	s.logg.Info(logCtx, "cart.item_added")
	return &result, nil
}

// unknownReference names the id behind a failed cart_items foreign key. The
// constraint names follow postgres' <table>_<column>_fkey default.
func unknownReference(input AddItemInput, constraint string) error {
	refs := []struct {
		field string
		id    int64
	}{
		{"product_color_variation_id", input.ColorVariationID},
		{"product_size_variation_id", input.SizeVariationID},
		{"product_id", input.ProductID},
	}
	for _, ref := range refs {
		if strings.Contains(constraint, ref.field) {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown %s %d", ref.field, ref.id).
				WithDetails(map[string]any{"field": ref.field, "id": ref.id})
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown product %d or variation %d/%d",
		input.ProductID, input.ColorVariationID, input.SizeVariationID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, customerID uuid.UUID, itemID int64, quantity int) (*models.CartItem, error) {
	if customerID == uuid.Nil || itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and item id are required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "min=1"})
	}
	var item *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.items.WithTx(tx)
		found, err := repo.FindOwnedActive(ctx, customerID, itemID)
		if err != nil {
			return notFoundOr(err, "cart item not found", "load cart item")
		}
		if err := repo.UpdateQuantity(ctx, found.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		found.Quantity = quantity
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, customerID uuid.UUID, itemID int64) error {
	if customerID == uuid.Nil || itemID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id and item id are required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.items.WithTx(tx)
		found, err := repo.FindOwnedActive(ctx, customerID, itemID)
		if err != nil {
			return notFoundOr(err, "cart item not found", "load cart item")
		}
		if err := repo.Delete(ctx, found.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return nil
	})
}

// ClearCart empties one of the customer's carts. Clearing an empty cart
// succeeds with zero removed.
func (s *service) ClearCart(ctx context.Context, customerID uuid.UUID, cartID int64) (int64, error) {
	if customerID == uuid.Nil || cartID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id and cart id are required")
	}
	var removed int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.carts.WithTx(tx).FindOwned(ctx, customerID, cartID); err != nil {
			return notFoundOr(err, "cart not found", "load cart")
		}
		n, err := s.items.WithTx(tx).Clear(ctx, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *service) ListItems(ctx context.Context, customerID uuid.UUID, cartID int64) ([]ItemView, error) {
	if customerID == uuid.Nil || cartID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and cart id are required")
	}
	if _, err := s.carts.FindOwned(ctx, customerID, cartID); err != nil {
		return nil, notFoundOr(err, "cart not found", "load cart")
	}
	items, err := s.items.ListEnriched(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return nonNil(items), nil
}

// LoadItems reads the enriched lines of a cart the caller already resolved.
func (s *service) LoadItems(ctx context.Context, tx *gorm.DB, cartID int64) ([]ItemView, error) {
	items, err := s.items.WithTx(tx).ListEnriched(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return nonNil(items), nil
}

func (s *service) ClearItems(ctx context.Context, tx *gorm.DB, cartID int64) (int64, error) {
	n, err := s.items.WithTx(tx).Clear(ctx, cartID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return n, nil
}

func validateAddItem(input AddItemInput) error {
	details := map[string]string{}
	if input.ProductID <= 0 {
		details["product_id"] = "required"
	}
	if input.ColorVariationID <= 0 {
		details["color_variation_id"] = "required"
	}
	if input.SizeVariationID <= 0 {
		details["size_variation_id"] = "required"
	}
	if input.Quantity < 1 {
		details["quantity"] = "min=1"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product, color, size and a quantity of at least 1 are required").
			WithDetails(details)
	}
	return nil
}

func activeCartConflict() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "customer already has an active cart").
		WithDetails(map[string]string{"reason": "active_cart_exists"})
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func nonNil(items []ItemView) []ItemView {
	if items == nil {
		return []ItemView{}
	}
	return items
}
