package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one immutable line of a placed order. Product display fields
// are snapshots taken at order time.
type OrderItem struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID          uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_items_order"`
	ProductID        *int64    `gorm:"column:product_id"`
	ColorVariationID *int64    `gorm:"column:product_color_variation_id"`
	SizeVariationID  *int64    `gorm:"column:product_size_variation_id"`
	ProductName      string    `gorm:"column:product_name;not null"`
	ProductColor     *string   `gorm:"column:product_color"`
	Size             *string   `gorm:"column:size"`
	Quantity         int       `gorm:"column:quantity;not null"`
	UnitPrice        int64     `gorm:"column:unit_price;not null"`
	TotalPrice       int64     `gorm:"column:total_price;not null"`
	IsActive         bool      `gorm:"column:is_active;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }
