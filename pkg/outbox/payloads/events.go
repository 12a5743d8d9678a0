package payloads

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent announces a committed order and its line count.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalItems  int               `json:"total_items"`
	FinalAmount int64             `json:"final_amount"`
	LineCount   int               `json:"line_count"`
	FromCart    *int64            `json:"from_cart_id,omitempty"`
}

// OrderStatusChangedEvent reports a status write. Forced marks admin
// overrides that bypassed the transition table.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	CustomerID    uuid.UUID         `json:"customer_id"`
	From          enums.OrderStatus `json:"from"`
	To            enums.OrderStatus `json:"to"`
	Forced        bool              `json:"forced"`
	Reason        string            `json:"reason,omitempty"`
	StockReleased bool              `json:"stock_released"`
}

// OrderDeletedEvent records the final state of a tombstoned order.
type OrderDeletedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	Status     enums.OrderStatus `json:"status"`
	DeletedAt  time.Time         `json:"deleted_at"`
}

func (e OrderCreatedEvent) CustomerRef() uuid.UUID       { return e.CustomerID }
func (e OrderStatusChangedEvent) CustomerRef() uuid.UUID { return e.CustomerID }
func (e OrderDeletedEvent) CustomerRef() uuid.UUID       { return e.CustomerID }
