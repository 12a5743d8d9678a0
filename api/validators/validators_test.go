package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type lineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"min=1"`
}

type orderRequest struct {
	ShippingAddress string        `json:"shipping_address" validate:"required"`
	Items           []lineRequest `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"shipping_address":"1 Main St","items":[{"product_id":3,"quantity":2}]}`))
	var dest orderRequest
	require.NoError(t, DecodeJSONBody(r, &dest))
	require.Equal(t, int64(3), dest.Items[0].ProductID)
}

func TestDecodeJSONBodyValidationDetails(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"items":[{"product_id":3,"quantity":2},{"product_id":0,"quantity":0}]}`))
	var dest orderRequest
	err := DecodeJSONBody(r, &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "is required", details["shipping_address"])
	require.Equal(t, "is required", details["items[1].product_id"])
	require.Equal(t, "must be at least 1", details["items[1].quantity"])
}

type addressFields struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
}

type checkoutRequest struct {
	addressFields
	ClearCart *bool `json:"clear_cart"`
}

func TestDecodeJSONBodyFlattensEmbeddedFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"clear_cart":true}`))
	var dest checkoutRequest
	err := DecodeJSONBody(r, &dest)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, map[string]string{"shipping_address": "is required"}, details)
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	var dest orderRequest
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bogus":1}`)), &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dest)
	requireMessage(t, err, "request body required")
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&big=500", nil)

	v, err := ParseQueryInt(r, "limit", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 10, v)

	v, err = ParseQueryInt(r, "missing", 25, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 25, v)

	_, err = ParseQueryInt(r, "bad", 25, 1, 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseQueryInt(r, "big", 25, 1, 100)
	requireMessage(t, err, "query parameter out of range")
}

func TestParseQueryIDAndUUID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?color_id=4&size_id=-1&customer_id=not-a-uuid", nil)

	id, err := ParseQueryID(r, "color_id")
	require.NoError(t, err)
	require.Equal(t, int64(4), id)

	_, err = ParseQueryID(r, "size_id")
	requireMessage(t, err, "invalid size_id")

	_, err = ParseQueryID(r, "other")
	requireMessage(t, err, "other is required")

	_, err = ParseQueryUUID(r, "customer_id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseQueryUUID(r, "absent")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestParseURLParams(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("itemId", "12")
	rctx.URLParams.Add("orderId", "0b9e1c1a-8f7e-4c52-9b0e-2d3c4b5a6f70")
	rctx.URLParams.Add("cartId", "abc")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	itemID, err := ParseIDParam(r, "itemId")
	require.NoError(t, err)
	require.Equal(t, int64(12), itemID)

	_, err = ParseIDParam(r, "cartId")
	requireMessage(t, err, "invalid cartId")

	orderID, err := ParseUUIDParam(r, "orderId")
	require.NoError(t, err)
	require.Equal(t, "0b9e1c1a-8f7e-4c52-9b0e-2d3c4b5a6f70", orderID.String())
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	require.Nil(t, SanitizeOptional(nil, 10))
	note := "  leave at door  "
	require.Equal(t, "leave at door", *SanitizeOptional(&note, 100))
}

func requireMessage(t *testing.T, err error, want string) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, want, typed.Message())
}
