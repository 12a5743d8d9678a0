package orders

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

func validateFields(fields OrderFields) error {
	problems := map[string]string{}
	if strings.TrimSpace(fields.ShippingAddress) == "" {
		problems["shipping_address"] = "required"
	}
	if strings.TrimSpace(fields.PaymentMethod) == "" {
		problems["payment_method"] = "required"
	}
	if fields.TotalItems < 0 {
		problems["total_items"] = "must not be negative"
	}
	for name, amount := range map[string]int64{
		"sub_total":       fields.SubTotal,
		"tax":             fields.Tax,
		"shipping_charge": fields.ShippingCharge,
		"total_amount":    fields.TotalAmount,
		"final_amount":    fields.FinalAmount,
	} {
		if amount < 0 {
			problems[name] = "must not be negative"
		}
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order fields").WithDetails(problems)
	}
	return nil
}

// validateLines checks the shape of each line. Product existence and variant
// ids are checked later inside the transaction.
func validateLines(lines []LineInput) error {
	for i, line := range lines {
		details := map[string]any{"line": i}
		switch {
		case line.Quantity < 1:
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1").WithDetails(details)
		case line.UnitPrice < 0 || line.TotalPrice < 0:
			return pkgerrors.New(pkgerrors.CodeValidation, "line prices must not be negative").WithDetails(details)
		case line.ProductID == nil && strings.TrimSpace(line.ProductName) == "":
			return pkgerrors.New(pkgerrors.CodeValidation, "product_name is required when product_id is absent").WithDetails(details)
		case line.ProductID != nil && *line.ProductID <= 0:
			return pkgerrors.New(pkgerrors.CodeValidation, "product_id must be positive").WithDetails(details)
		}
	}
	return nil
}

// validateVariants runs after product existence is confirmed. Stock is kept
// per variant, so a product line must name both variation ids.
func validateVariants(lines []LineInput) error {
	for i, line := range lines {
		if line.ProductID != nil && !positive(line.ColorVariationID, line.SizeVariationID) {
			return pkgerrors.New(pkgerrors.CodeValidation, "lines with a product need color and size variation ids").
				WithDetails(map[string]any{"line": i, "product_id": *line.ProductID})
		}
	}
	return nil
}

func positive(ids ...*int64) bool {
	for _, id := range ids {
		if id == nil || *id <= 0 {
			return false
		}
	}
	return true
}

// reservationRequests maps product lines to stock requests. Lines without a
// product are not stock tracked.
func reservationRequests(lines []LineInput) []inventory.ReservationRequest {
	var requests []inventory.ReservationRequest
	for i, line := range lines {
		if line.ProductID == nil {
			continue
		}
		req := inventory.ReservationRequest{
			Line:      i,
			ProductID: *line.ProductID,
			Quantity:  line.Quantity,
		}
		if line.ColorVariationID != nil {
			req.ColorVariationID = *line.ColorVariationID
		}
		if line.SizeVariationID != nil {
			req.SizeVariationID = *line.SizeVariationID
		}
		requests = append(requests, req)
	}
	return requests
}

func orderItem(orderID uuid.UUID, line LineInput, names map[int64]string) models.OrderItem {
	name := line.ProductName
	if name == "" && line.ProductID != nil {
		name = names[*line.ProductID]
	}
	total := line.TotalPrice
	if total == 0 {
		total = line.UnitPrice * int64(line.Quantity)
	}
	return models.OrderItem{
		OrderID:          orderID,
		ProductID:        line.ProductID,
		ColorVariationID: line.ColorVariationID,
		SizeVariationID:  line.SizeVariationID,
		ProductName:      name,
		ProductColor:     line.ProductColor,
		Size:             line.Size,
		Quantity:         line.Quantity,
		UnitPrice:        line.UnitPrice,
		TotalPrice:       total,
		IsActive:         true,
	}
}

// linesFromCart snapshots cart lines with their current catalog display
// values and selling price.
func linesFromCart(items []cart.ItemView) []LineInput {
	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		productID := item.ProductID
		colorID := item.ColorVariationID
		sizeID := item.SizeVariationID
		line := LineInput{
			ProductID:        &productID,
			ColorVariationID: &colorID,
			SizeVariationID:  &sizeID,
			ProductColor:     item.Color,
			Quantity:         item.Quantity,
		}
		if item.ProductName != nil {
			line.ProductName = *item.ProductName
		}
		if label := product.SizeLabel(item.Size); label != "" {
			line.Size = &label
		}
		if item.SellingPrice.Valid {
			line.UnitPrice = product.MinorUnits(item.SellingPrice.Decimal)
		}
		line.TotalPrice = line.UnitPrice * int64(line.Quantity)
		lines = append(lines, line)
	}
	return lines
}

// fieldsForCheckout fills totals the caller left at zero from the snapshot.
func fieldsForCheckout(fields OrderFields, lines []LineInput) OrderFields {
	if fields.TotalItems == 0 {
		for _, line := range lines {
			fields.TotalItems += line.Quantity
		}
	}
	if fields.SubTotal == 0 {
		for _, line := range lines {
			fields.SubTotal += line.TotalPrice
		}
	}
	gross := fields.SubTotal + fields.Tax + fields.ShippingCharge
	if fields.TotalAmount == 0 {
		fields.TotalAmount = gross
	}
	if fields.FinalAmount == 0 {
		fields.FinalAmount = gross
	}
	return fields
}

func linesFromItems(items []models.OrderItem) []LineInput {
	lines := make([]LineInput, 0, len(items))
	for _, item := range items {
		if !item.IsActive {
			continue
		}
		lines = append(lines, LineInput{
			ProductID:        item.ProductID,
			ColorVariationID: item.ColorVariationID,
			SizeVariationID:  item.SizeVariationID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       item.TotalPrice,
		})
	}
	return lines
}
