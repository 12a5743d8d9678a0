package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is the catalog row consulted for existence checks and display joins.
type Product struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Name           string              `gorm:"column:name;not null"`
	SellingPrice   decimal.Decimal     `gorm:"column:selling_price;type:numeric(12,2);not null"`
	MRP            decimal.Decimal     `gorm:"column:mrp;type:numeric(12,2);not null"`
	ThumbnailImage json.RawMessage     `gorm:"column:thumbnail_image;type:jsonb"`
	Status         enums.ProductStatus `gorm:"column:status;type:product_status;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

type ProductColorVariation struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Color string `gorm:"column:color;not null"`
}

func (ProductColorVariation) TableName() string { return "product_color_variations" }

type ProductSizeVariation struct {
	ID   int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Type enums.SizeType  `gorm:"column:type;type:size_type;not null"`
	Size json.RawMessage `gorm:"column:size;type:jsonb"`
}

func (ProductSizeVariation) TableName() string { return "product_size_variations" }
