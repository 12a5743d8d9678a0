package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the immutable snapshot of a purchase. Only Status and OrderNote
// change after creation; DeletedAt tombstones admin deletions.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index:ix_orders_customer_created,priority:1"`
	TotalItems      int                 `gorm:"column:total_items;not null"`
	ShippingAddress string              `gorm:"column:shipping_address;type:text;not null"`
	SubTotal        int64               `gorm:"column:sub_total;not null"`
	Tax             int64               `gorm:"column:tax;not null"`
	ShippingCharge  int64               `gorm:"column:shipping_charge;not null"`
	TotalAmount     int64               `gorm:"column:total_amount;not null"`
	FinalAmount     int64               `gorm:"column:final_amount;not null"`
	PaymentMethod   string              `gorm:"column:payment_method;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	OrderNote       *string             `gorm:"column:order_note;type:text"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null;index:ix_orders_status"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index:ix_orders_customer_created,priority:2"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
