package models

import "time"

// ProductInventory holds available stock for one product variant.
type ProductInventory struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID         int64     `gorm:"column:product_id;not null;uniqueIndex:ux_product_inventory_variant,priority:1"`
	ColorVariationID  int64     `gorm:"column:product_color_variation_id;not null;uniqueIndex:ux_product_inventory_variant,priority:2"`
	SizeVariationID   int64     `gorm:"column:product_size_variation_id;not null;uniqueIndex:ux_product_inventory_variant,priority:3"`
	AvailableQuantity int       `gorm:"column:available_quantity;not null;check:chk_product_inventory_available,available_quantity >= 0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductInventory) TableName() string { return "product_inventory" }
