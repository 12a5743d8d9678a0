package models

import "time"

// CartItem is one product variant selection within a cart. The
// (cart, product, color, size) tuple is unique; repeated adds merge quantity.
type CartItem struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CartID           int64     `gorm:"column:cart_id;not null;uniqueIndex:ux_cart_items_variant,priority:1"`
	ProductID        int64     `gorm:"column:product_id;not null;uniqueIndex:ux_cart_items_variant,priority:2"`
	ColorVariationID int64     `gorm:"column:product_color_variation_id;not null;uniqueIndex:ux_cart_items_variant,priority:3"`
	SizeVariationID  int64     `gorm:"column:product_size_variation_id;not null;uniqueIndex:ux_cart_items_variant,priority:4"`
	Quantity         int       `gorm:"column:quantity;not null;check:chk_cart_items_quantity,quantity >= 1"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartItem) TableName() string { return "cart_items" }
