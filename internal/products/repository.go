package product

import (
	"context"
	"sort"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the catalog rows this service depends on. The catalog is
// owned elsewhere; nothing here writes products.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindExisting returns the products whose ids appear in ids, in one query.
// Ids that do not resolve are simply absent from the result.
func (r *Repository) FindExisting(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.Product, error) {
	ids = Distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	if err := r.Conn(ctx, tx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindExistingIDs is FindExisting reduced to the id set.
func (r *Repository) FindExistingIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]int64, error) {
	ids = Distinct(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	if err := r.Conn(ctx, tx).Model(&models.Product{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// Missing returns the ids from requested that are not in found, sorted.
func Missing(requested, found []int64) []int64 {
	seen := make(map[int64]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []int64
	for _, id := range Distinct(requested) {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Distinct drops duplicates and sorts ascending.
func Distinct(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
