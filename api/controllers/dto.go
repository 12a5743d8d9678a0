package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type cartResponse struct {
	ID         int64                  `json:"id"`
	CustomerID uuid.UUID              `json:"customer_id"`
	IsActive   bool                   `json:"is_active"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Items      []cartItemViewResponse `json:"items,omitempty"`
}

func newCartResponse(cart *models.Cart) cartResponse {
	return cartResponse{
		ID:         cart.ID,
		CustomerID: cart.CustomerID,
		IsActive:   cart.IsActive,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
}

func newCartViewResponse(view *cartsvc.CartView) cartResponse {
	resp := newCartResponse(&view.Cart)
	resp.Items = newCartItemViews(view.Items)
	if resp.Items == nil {
		resp.Items = []cartItemViewResponse{}
	}
	return resp
}

type cartItemResponse struct {
	ID               int64     `json:"id"`
	CartID           int64     `json:"cart_id"`
	ProductID        int64     `json:"product_id"`
	ColorVariationID int64     `json:"color_variation_id"`
	SizeVariationID  int64     `json:"size_variation_id"`
	Quantity         int       `json:"quantity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newCartItemResponse(item *models.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:               item.ID,
		CartID:           item.CartID,
		ProductID:        item.ProductID,
		ColorVariationID: item.ColorVariationID,
		SizeVariationID:  item.SizeVariationID,
		Quantity:         item.Quantity,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

// cartItemViewResponse is the enriched line shown to shoppers. Prices are
// decimal strings as stored on the catalog.
type cartItemViewResponse struct {
	cartItemResponse
	ProductName    *string          `json:"product_name"`
	SellingPrice   *decimal.Decimal `json:"selling_price"`
	MRP            *decimal.Decimal `json:"mrp"`
	ThumbnailImage json.RawMessage  `json:"thumbnail_image,omitempty"`
	Color          *string          `json:"color"`
	SizeType       *string          `json:"size_type"`
	Size           json.RawMessage  `json:"size,omitempty"`
}

func newCartItemViews(items []cartsvc.ItemView) []cartItemViewResponse {
	out := make([]cartItemViewResponse, 0, len(items))
	for _, item := range items {
		view := cartItemViewResponse{
			cartItemResponse: cartItemResponse{
				ID:               item.ID,
				CartID:           item.CartID,
				ProductID:        item.ProductID,
				ColorVariationID: item.ColorVariationID,
				SizeVariationID:  item.SizeVariationID,
				Quantity:         item.Quantity,
				CreatedAt:        item.CreatedAt,
				UpdatedAt:        item.UpdatedAt,
			},
			ProductName:    item.ProductName,
			ThumbnailImage: item.ThumbnailImage,
			Color:          item.Color,
			SizeType:       item.SizeType,
			Size:           item.Size,
		}
		if item.SellingPrice.Valid {
			price := item.SellingPrice.Decimal
			view.SellingPrice = &price
		}
		if item.MRP.Valid {
			mrp := item.MRP.Decimal
			view.MRP = &mrp
		}
		out = append(out, view)
	}
	return out
}

type addItemResponse struct {
	Item        cartItemResponse `json:"item"`
	Outcome     cartsvc.Outcome  `json:"outcome"`
	CartCreated bool             `json:"cart_created"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	TotalItems      int                 `json:"total_items"`
	ShippingAddress string              `json:"shipping_address"`
	SubTotal        int64               `json:"sub_total"`
	Tax             int64               `json:"tax"`
	ShippingCharge  int64               `json:"shipping_charge"`
	TotalAmount     int64               `json:"total_amount"`
	FinalAmount     int64               `json:"final_amount"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	OrderNote       *string             `json:"order_note"`
	Status          enums.OrderStatus   `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	DeletedAt       *time.Time          `json:"deleted_at,omitempty"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:              order.ID,
		CustomerID:      order.CustomerID,
		TotalItems:      order.TotalItems,
		ShippingAddress: order.ShippingAddress,
		SubTotal:        order.SubTotal,
		Tax:             order.Tax,
		ShippingCharge:  order.ShippingCharge,
		TotalAmount:     order.TotalAmount,
		FinalAmount:     order.FinalAmount,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		OrderNote:       order.OrderNote,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	if order.DeletedAt.Valid {
		deleted := order.DeletedAt.Time
		resp.DeletedAt = &deleted
	}
	return resp
}

func newOrderDetailResponse(detail *orders.OrderDetail) orderResponse {
	resp := newOrderResponse(&detail.Order)
	resp.Items = make([]orderItemResponse, 0, len(detail.Items))
	for i := range detail.Items {
		resp.Items = append(resp.Items, newOrderItemResponse(&detail.Items[i]))
	}
	return resp
}

type orderItemResponse struct {
	ID               int64   `json:"id"`
	ProductID        *int64  `json:"product_id"`
	ColorVariationID *int64  `json:"color_variation_id"`
	SizeVariationID  *int64  `json:"size_variation_id"`
	ProductName      string  `json:"product_name"`
	ProductColor     *string `json:"product_color"`
	Size             *string `json:"size"`
	Quantity         int     `json:"quantity"`
	UnitPrice        int64   `json:"unit_price"`
	TotalPrice       int64   `json:"total_price"`
	IsActive         bool    `json:"is_active"`
}

func newOrderItemResponse(item *models.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ColorVariationID: item.ColorVariationID,
		SizeVariationID:  item.SizeVariationID,
		ProductName:      item.ProductName,
		ProductColor:     item.ProductColor,
		Size:             item.Size,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		TotalPrice:       item.TotalPrice,
		IsActive:         item.IsActive,
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderListResponse(list *orders.OrderList) orderListResponse {
	resp := orderListResponse{
		Orders:     make([]orderResponse, 0, len(list.Orders)),
		NextCursor: list.NextCursor,
	}
	for i := range list.Orders {
		resp.Orders = append(resp.Orders, newOrderResponse(&list.Orders[i]))
	}
	return resp
}

type checkoutResponse struct {
	Order        orderResponse `json:"order"`
	CartID       int64         `json:"cart_id"`
	ItemsCleared int64         `json:"items_cleared"`
}

type inventoryResponse struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	ColorVariationID  int64     `json:"color_variation_id"`
	SizeVariationID   int64     `json:"size_variation_id"`
	AvailableQuantity int       `json:"available_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newInventoryResponse(row *models.ProductInventory) inventoryResponse {
	return inventoryResponse{
		ID:                row.ID,
		ProductID:         row.ProductID,
		ColorVariationID:  row.ColorVariationID,
		SizeVariationID:   row.SizeVariationID,
		AvailableQuantity: row.AvailableQuantity,
		UpdatedAt:         row.UpdatedAt,
	}
}

type productStockResponse struct {
	ProductID int64               `json:"product_id"`
	InStock   bool                `json:"in_stock"`
	Total     int                 `json:"total_available"`
	Variants  []inventoryResponse `json:"variants"`
}

func newProductStockResponse(stock *inventory.ProductStock) productStockResponse {
	resp := productStockResponse{
		ProductID: stock.ProductID,
		InStock:   stock.InStock,
		Total:     stock.Total,
		Variants:  make([]inventoryResponse, 0, len(stock.Variants)),
	}
	for i := range stock.Variants {
		resp.Variants = append(resp.Variants, newInventoryResponse(&stock.Variants[i]))
	}
	return resp
}
