package orders

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	CustomerID uuid.UUID
	Role       enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

func (a Actor) canSee(order *models.Order) bool {
	return a.IsAdmin() || order.CustomerID == a.CustomerID
}

// OrderFields are the caller-priced header values stored as given.
type OrderFields struct {
	TotalItems      int
	ShippingAddress string
	SubTotal        int64
	Tax             int64
	ShippingCharge  int64
	TotalAmount     int64
	FinalAmount     int64
	PaymentMethod   string
	OrderNote       *string
}

// LineInput is one order line. Lines that name a product must also name the
// color and size variant so stock can be reserved.
type LineInput struct {
	ProductID        *int64
	ColorVariationID *int64
	SizeVariationID  *int64
	ProductName      string
	ProductColor     *string
	Size             *string
	Quantity         int
	UnitPrice        int64
	TotalPrice       int64
}

type CreateOrderInput struct {
	Actor      Actor
	CustomerID uuid.UUID
	Fields     OrderFields
	Items      []LineInput
}

type CheckoutInput struct {
	Actor      Actor
	CustomerID uuid.UUID
	Fields     OrderFields
	ClearCart  bool
}

type CheckoutResult struct {
	Order        *models.Order `json:"order"`
	CartID       int64         `json:"cart_id"`
	ItemsCleared int64         `json:"items_cleared"`
}

// UpdateOrderInput carries the only two mutable order fields.
type UpdateOrderInput struct {
	OrderNote *string
	Status    *enums.OrderStatus
}

// ListFilters narrows order listings.
type ListFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
}

type ListParams struct {
	ListFilters
	pagination.Params
}

type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is an order with its lines.
type OrderDetail struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}
