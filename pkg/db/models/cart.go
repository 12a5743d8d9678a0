package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a customer's shopping session. At most one row per customer has
// IsActive set; ux_carts_active_customer is a partial unique index.
type Cart struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index:ix_carts_customer;uniqueIndex:ux_carts_active_customer,where:is_active"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string { return "carts" }
