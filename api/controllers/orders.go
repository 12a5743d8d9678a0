package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	maxAddressLength = 1000
	maxNoteLength    = 2000
)

type orderFieldsRequest struct {
	TotalItems      int     `json:"total_items" validate:"gte=0"`
	ShippingAddress string  `json:"shipping_address" validate:"required"`
	SubTotal        int64   `json:"sub_total" validate:"gte=0"`
	Tax             int64   `json:"tax" validate:"gte=0"`
	ShippingCharge  int64   `json:"shipping_charge" validate:"gte=0"`
	TotalAmount     int64   `json:"total_amount" validate:"gte=0"`
	FinalAmount     int64   `json:"final_amount" validate:"gte=0"`
	PaymentMethod   string  `json:"payment_method" validate:"required"`
	OrderNote       *string `json:"order_note"`
}

func (f orderFieldsRequest) toFields() orders.OrderFields {
	return orders.OrderFields{
		TotalItems:      f.TotalItems,
		ShippingAddress: validators.SanitizeString(f.ShippingAddress, maxAddressLength),
		SubTotal:        f.SubTotal,
		Tax:             f.Tax,
		ShippingCharge:  f.ShippingCharge,
		TotalAmount:     f.TotalAmount,
		FinalAmount:     f.FinalAmount,
		PaymentMethod:   strings.TrimSpace(f.PaymentMethod),
		OrderNote:       validators.SanitizeOptional(f.OrderNote, maxNoteLength),
	}
}

type orderLineRequest struct {
	ProductID        *int64  `json:"product_id"`
	ColorVariationID *int64  `json:"color_variation_id"`
	SizeVariationID  *int64  `json:"size_variation_id"`
	ProductName      string  `json:"product_name" validate:"required_without=ProductID"`
	ProductColor     *string `json:"product_color"`
	Size             *string `json:"size"`
	Quantity         int     `json:"quantity" validate:"gt=0"`
	UnitPrice        int64   `json:"unit_price" validate:"gte=0"`
	TotalPrice       int64   `json:"total_price" validate:"gte=0"`
}

type createOrderRequest struct {
	orderFieldsRequest
	Items []orderLineRequest `json:"items" validate:"dive"`
}

func (req createOrderRequest) lines() []orders.LineInput {
	out := make([]orders.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		out = append(out, orders.LineInput{
			ProductID:        item.ProductID,
			ColorVariationID: item.ColorVariationID,
			SizeVariationID:  item.SizeVariationID,
			ProductName:      strings.TrimSpace(item.ProductName),
			ProductColor:     item.ProductColor,
			Size:             item.Size,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       item.TotalPrice,
		})
	}
	return out
}

type checkoutRequest struct {
	orderFieldsRequest
	ClearCart *bool `json:"clear_cart"`
}

// Checkout converts the caller's active cart into an order. When the body
// does not say whether to empty the cart, clearCartDefault applies.
func Checkout(svc orders.Service, clearCartDefault bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clear := clearCartDefault
		if payload.ClearCart != nil {
			clear = *payload.ClearCart
		}
		result, err := svc.Checkout(r.Context(), orders.CheckoutInput{
			Actor:      actorFrom(r),
			CustomerID: customer,
			Fields:     payload.toFields(),
			ClearCart:  clear,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:        newOrderResponse(result.Order),
			CartID:       result.CartID,
			ItemsCleared: result.ItemsCleared,
		})
	}
}

// OrderCreate places an order for the caller from explicit lines.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		createOrder(w, r, svc, logg, customer, payload)
	}
}

func createOrder(w http.ResponseWriter, r *http.Request, svc orders.Service, logg *logger.Logger, customer uuid.UUID, payload createOrderRequest) {
	order, err := svc.CreateOrder(r.Context(), orders.CreateOrderInput{
		Actor:      actorFrom(r),
		CustomerID: customer,
		Fields:     payload.toFields(),
		Items:      payload.lines(),
	})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
}

// OrderList pages through the caller's own orders.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := customerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := listParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.CustomerID = &customer
		list, err := svc.ListOrders(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(list))
	}
}

func listParams(r *http.Request) (orders.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return orders.ListParams{}, err
	}
	params := orders.ListParams{
		Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return orders.ListParams{}, pkgerrors.Invalid("status", "invalid status")
		}
		params.Status = &status
	}
	return params, nil
}

// OrderDetail returns an order with its lines. Orders owned by someone else
// answer 404.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetOrder(r.Context(), actorFrom(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderDetailResponse(detail))
	}
}

type updateOrderRequest struct {
	OrderNote *string `json:"order_note"`
	Status    *string `json:"status"`
}

// OrderUpdate changes the note and/or status; every other field is fixed
// once the order exists.
func OrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := orders.UpdateOrderInput{OrderNote: validators.SanitizeOptional(payload.OrderNote, maxNoteLength)}
		if payload.Status != nil {
			status, err := enums.ParseOrderStatus(*payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("status", "invalid status"))
				return
			}
			input.Status = &status
		}
		order, err := svc.UpdateOrder(r.Context(), actorFrom(r), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
