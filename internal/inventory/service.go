package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

// ReasonInsufficientStock marks a reservation the floor-at-zero guard refused.
const ReasonInsufficientStock = "insufficient_stock"

type productChecker interface {
	FindExistingIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]int64, error)
}

// ReservationRequest asks for Quantity units of one variant. Line is the
// caller's index for the request and is echoed in the result.
type ReservationRequest struct {
	Line             int   `json:"line"`
	ProductID        int64 `json:"product_id"`
	ColorVariationID int64 `json:"color_variation_id"`
	SizeVariationID  int64 `json:"size_variation_id"`
	Quantity         int   `json:"quantity"`
}

func (r ReservationRequest) key() VariantKey {
	return VariantKey{ProductID: r.ProductID, ColorVariationID: r.ColorVariationID, SizeVariationID: r.SizeVariationID}
}

type ReservationResult struct {
	ReservationRequest
	Reserved bool   `json:"reserved"`
	Reason   string `json:"reason,omitempty"`
}

// UpsertInput sets the absolute available quantity of one variant.
type UpsertInput struct {
	ProductID         int64
	ColorVariationID  int64
	SizeVariationID   int64
	AvailableQuantity int
}

// ProductStock summarises stock for one product.
type ProductStock struct {
	ProductID int64                     `json:"product_id"`
	InStock   bool                      `json:"in_stock"`
	Total     int                       `json:"total_available"`
	Variants  []models.ProductInventory `json:"variants"`
}

// Service answers stock questions and applies reservations.
type Service interface {
	GetAvailableQuantity(ctx context.Context, productID, colorID, sizeID int64) (int, error)
	IsInStock(ctx context.Context, productID int64) (bool, error)
	GetProductStock(ctx context.Context, productID int64) (*ProductStock, error)
	ListByProduct(ctx context.Context, productID int64) ([]models.ProductInventory, error)
	Get(ctx context.Context, id int64) (*models.ProductInventory, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.ProductInventory, error)
	Delete(ctx context.Context, id int64) (*models.ProductInventory, error)
	Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error)
	Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error
}

type service struct {
	repo     Repository
	products productChecker
}

// NewService builds the inventory service.
func NewService(repo Repository, products productChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product checker required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetAvailableQuantity(ctx context.Context, productID, colorID, sizeID int64) (int, error) {
	if productID <= 0 || colorID <= 0 || sizeID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product, color and size ids are required")
	}
	total, err := s.repo.SumAvailable(ctx, productID, &colorID, &sizeID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum available quantity")
	}
	return total, nil
}

func (s *service) IsInStock(ctx context.Context, productID int64) (bool, error) {
	if productID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	total, err := s.repo.SumAvailable(ctx, productID, nil, nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum product stock")
	}
	return total > 0, nil
}

func (s *service) GetProductStock(ctx context.Context, productID int64) (*ProductStock, error) {
	rows, err := s.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, row := range rows {
		total += row.AvailableQuantity
	}
	return &ProductStock{
		ProductID: productID,
		InStock:   total > 0,
		Total:     total,
		Variants:  rows,
	}, nil
}

func (s *service) ListByProduct(ctx context.Context, productID int64) ([]models.ProductInventory, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product inventory")
	}
	if rows == nil {
		rows = []models.ProductInventory{}
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.ProductInventory, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory %d not found", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory")
	}
	return row, nil
}

// Delete removes one variant's stock row and returns it. A variant without a
// row reads as zero available, so later reservations for it are refused.
func (s *service) Delete(ctx context.Context, id int64) (*models.ProductInventory, error) {
	row, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory")
	}
	if !deleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory %d not found", id)
	}
	return row, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.ProductInventory, error) {
	if input.ProductID <= 0 || input.ColorVariationID <= 0 || input.SizeVariationID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product, color and size ids are required")
	}
	if input.AvailableQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available quantity must be non-negative")
	}
	found, err := s.products.FindExistingIDs(ctx, nil, []int64{input.ProductID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if len(found) == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %d not found", input.ProductID)
	}
	row, err := s.repo.Upsert(ctx, &models.ProductInventory{
		ProductID:         input.ProductID,
		ColorVariationID:  input.ColorVariationID,
		SizeVariationID:   input.SizeVariationID,
		AvailableQuantity: input.AvailableQuantity,
	})
	if _, ok := db.ForeignKeyViolation(err); ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown variation %d/%d", input.ColorVariationID, input.SizeVariationID).
			WithDetails(map[string]any{"color_variation_id": input.ColorVariationID, "size_variation_id": input.SizeVariationID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert inventory")
	}
	return row, nil
}

// Reserve decrements stock line by line on tx. Lines the guard refuses come
// back with Reserved=false; the caller decides whether to roll back.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) ([]ReservationResult, error) {
	if err := validateRequests(requests); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	results := make([]ReservationResult, 0, len(requests))
	for _, req := range requests {
		ok, err := repo.Decrement(ctx, req.key(), req.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
		}
		result := ReservationResult{ReservationRequest: req, Reserved: ok}
		if !ok {
			result.Reason = ReasonInsufficientStock
		}
		results = append(results, result)
	}
	return results, nil
}

// Release returns stock for the given lines on tx.
func (s *service) Release(ctx context.Context, tx *gorm.DB, requests []ReservationRequest) error {
	if err := validateRequests(requests); err != nil {
		return err
	}
	repo := s.repo.WithTx(tx)
	for _, req := range requests {
		if err := repo.Increment(ctx, req.key(), req.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
		}
	}
	return nil
}

// Rejected filters results down to the lines that were not reserved.
func Rejected(results []ReservationResult) []ReservationResult {
	var out []ReservationResult
	for _, r := range results {
		if !r.Reserved {
			out = append(out, r)
		}
	}
	return out
}

var errInvalidReservation = errors.New("invalid reservation request")

func validateRequests(requests []ReservationRequest) error {
	for _, req := range requests {
		if req.Quantity <= 0 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, errInvalidReservation, "reservation quantity must be positive").
				WithDetails(map[string]any{"line": req.Line})
		}
		if req.ProductID <= 0 || req.ColorVariationID <= 0 || req.SizeVariationID <= 0 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, errInvalidReservation, "reservation requires product, color and size ids").
				WithDetails(map[string]any{"line": req.Line})
		}
	}
	return nil
}
