package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func InventoryProductStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stock, err := svc.GetProductStock(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductStockResponse(stock))
	}
}

type variantQuantityResponse struct {
	ProductID         int64 `json:"product_id"`
	ColorVariationID  int64 `json:"color_variation_id"`
	SizeVariationID   int64 `json:"size_variation_id"`
	AvailableQuantity int   `json:"available_quantity"`
}

// InventoryVariantQuantity reports stock for one color/size variant. A
// variant with no inventory row reads as zero.
func InventoryVariantQuantity(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		colorID, err := validators.ParseQueryID(r, "color_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sizeID, err := validators.ParseQueryID(r, "size_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty, err := svc.GetAvailableQuantity(r.Context(), productID, colorID, sizeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variantQuantityResponse{
			ProductID:         productID,
			ColorVariationID:  colorID,
			SizeVariationID:   sizeID,
			AvailableQuantity: qty,
		})
	}
}

type upsertInventoryRequest struct {
	ProductID         int64 `json:"product_id" validate:"gt=0"`
	ColorVariationID  int64 `json:"color_variation_id" validate:"gt=0"`
	SizeVariationID   int64 `json:"size_variation_id" validate:"gt=0"`
	AvailableQuantity *int  `json:"available_quantity" validate:"required,gte=0"`
}

// AdminInventoryUpsert sets the available quantity of a variant.
func AdminInventoryUpsert(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload upsertInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Upsert(r.Context(), inventory.UpsertInput{
			ProductID:         payload.ProductID,
			ColorVariationID:  payload.ColorVariationID,
			SizeVariationID:   payload.SizeVariationID,
			AvailableQuantity: *payload.AvailableQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(row))
	}
}

func AdminInventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(row))
	}
}

// AdminInventoryDelete removes one variant's stock row and echoes it back.
func AdminInventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(row))
	}
}
