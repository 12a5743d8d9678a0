package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type stubCartService struct {
	cartsvc.Service
	getActive func(ctx context.Context, customerID uuid.UUID) (*cartsvc.CartView, error)
	create    func(ctx context.Context, customerID uuid.UUID) (*models.Cart, error)
	setActive func(ctx context.Context, customerID uuid.UUID, cartID int64, active bool) (*models.Cart, error)
	addItem   func(ctx context.Context, input cartsvc.AddItemInput) (*cartsvc.AddItemResult, error)
	update    func(ctx context.Context, customerID uuid.UUID, itemID int64, quantity int) (*models.CartItem, error)
	remove    func(ctx context.Context, customerID uuid.UUID, itemID int64) error
	clear     func(ctx context.Context, customerID uuid.UUID, cartID int64) (int64, error)
}

func (s stubCartService) GetActiveCart(ctx context.Context, customerID uuid.UUID) (*cartsvc.CartView, error) {
	return s.getActive(ctx, customerID)
}

func (s stubCartService) CreateCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	return s.create(ctx, customerID)
}

func (s stubCartService) SetCartActive(ctx context.Context, customerID uuid.UUID, cartID int64, active bool) (*models.Cart, error) {
	return s.setActive(ctx, customerID, cartID, active)
}

func (s stubCartService) AddItem(ctx context.Context, input cartsvc.AddItemInput) (*cartsvc.AddItemResult, error) {
	return s.addItem(ctx, input)
}

func (s stubCartService) UpdateItemQuantity(ctx context.Context, customerID uuid.UUID, itemID int64, quantity int) (*models.CartItem, error) {
	return s.update(ctx, customerID, itemID, quantity)
}

func (s stubCartService) RemoveItem(ctx context.Context, customerID uuid.UUID, itemID int64) error {
	return s.remove(ctx, customerID, itemID)
}

func (s stubCartService) ClearCart(ctx context.Context, customerID uuid.UUID, cartID int64) (int64, error) {
	return s.clear(ctx, customerID, cartID)
}

type stubOrdersService struct {
	orders.Service
	create   func(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	checkout func(ctx context.Context, input orders.CheckoutInput) (*orders.CheckoutResult, error)
	update   func(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateOrderInput) (*models.Order, error)
	force    func(ctx context.Context, actor orders.Actor, orderID uuid.UUID, status enums.OrderStatus, reason string) (*models.Order, error)
	list     func(ctx context.Context, params orders.ListParams) (*orders.OrderList, error)
	get      func(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderDetail, error)
}

func (s stubOrdersService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return s.create(ctx, input)
}

func (s stubOrdersService) Checkout(ctx context.Context, input orders.CheckoutInput) (*orders.CheckoutResult, error) {
	return s.checkout(ctx, input)
}

func (s stubOrdersService) UpdateOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateOrderInput) (*models.Order, error) {
	return s.update(ctx, actor, orderID, input)
}

func (s stubOrdersService) ForceStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID, status enums.OrderStatus, reason string) (*models.Order, error) {
	return s.force(ctx, actor, orderID, status, reason)
}

func (s stubOrdersService) ListOrders(ctx context.Context, params orders.ListParams) (*orders.OrderList, error) {
	return s.list(ctx, params)
}

func (s stubOrdersService) GetOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) (*orders.OrderDetail, error) {
	return s.get(ctx, actor, orderID)
}

type stubInventoryService struct {
	inventory.Service
	quantity func(ctx context.Context, productID, colorID, sizeID int64) (int, error)
	stock    func(ctx context.Context, productID int64) (*inventory.ProductStock, error)
	upsert   func(ctx context.Context, input inventory.UpsertInput) (*models.ProductInventory, error)
	remove   func(ctx context.Context, id int64) (*models.ProductInventory, error)
}

func (s stubInventoryService) Delete(ctx context.Context, id int64) (*models.ProductInventory, error) {
	return s.remove(ctx, id)
}

func (s stubInventoryService) GetAvailableQuantity(ctx context.Context, productID, colorID, sizeID int64) (int, error) {
	return s.quantity(ctx, productID, colorID, sizeID)
}

func (s stubInventoryService) GetProductStock(ctx context.Context, productID int64) (*inventory.ProductStock, error) {
	return s.stock(ctx, productID)
}

func (s stubInventoryService) Upsert(ctx context.Context, input inventory.UpsertInput) (*models.ProductInventory, error) {
	return s.upsert(ctx, input)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-controllers", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

// serve mounts handler on pattern and runs one request as the given caller.
func serve(t *testing.T, method, pattern, target, body string, customer uuid.UUID, role enums.Role, handler http.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, handler)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithCustomerID(req.Context(), customer)
	ctx = middleware.WithRole(ctx, role)
	req = req.WithContext(ctx)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var env envelope
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

func TestCartGetReturnsItems(t *testing.T) {
	customer := uuid.New()
	svc := stubCartService{
		getActive: func(_ context.Context, id uuid.UUID) (*cartsvc.CartView, error) {
			require.Equal(t, customer, id)
			name := "Linen Shirt"
			return &cartsvc.CartView{
				Cart:  models.Cart{ID: 7, CustomerID: id, IsActive: true},
				Items: []cartsvc.ItemView{{ID: 1, CartID: 7, ProductID: 3, Quantity: 2, ProductName: &name}},
			}, nil
		},
	}

	resp, env := serve(t, http.MethodGet, "/cart", "/cart", "", customer, enums.RoleCustomer, CartGet(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	var body cartResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Equal(t, int64(7), body.ID)
	require.Len(t, body.Items, 1)
	require.Equal(t, "Linen Shirt", *body.Items[0].ProductName)
}

func TestCartGetNotFound(t *testing.T) {
	svc := stubCartService{
		getActive: func(context.Context, uuid.UUID) (*cartsvc.CartView, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		},
	}
	resp, env := serve(t, http.MethodGet, "/cart", "/cart", "", uuid.New(), enums.RoleCustomer, CartGet(svc, testLogger()))
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, string(pkgerrors.CodeNotFound), env.Error.Code)
}

func TestCartRoutesRequireCustomer(t *testing.T) {
	resp, _ := serve(t, http.MethodGet, "/cart", "/cart", "", uuid.Nil, enums.RoleAdmin, CartGet(stubCartService{}, testLogger()))
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCartCreateConflict(t *testing.T) {
	svc := stubCartService{
		create: func(context.Context, uuid.UUID) (*models.Cart, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "active cart already exists")
		},
	}
	resp, _ := serve(t, http.MethodPost, "/cart", "/cart", "", uuid.New(), enums.RoleCustomer, CartCreate(svc, testLogger()))
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestCartCreateReturnsCreated(t *testing.T) {
	svc := stubCartService{
		create: func(_ context.Context, id uuid.UUID) (*models.Cart, error) {
			return &models.Cart{ID: 1, CustomerID: id, IsActive: true}, nil
		},
	}
	resp, _ := serve(t, http.MethodPost, "/cart", "/cart", "", uuid.New(), enums.RoleCustomer, CartCreate(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestCartSetActiveRequiresFlag(t *testing.T) {
	called := false
	svc := stubCartService{
		setActive: func(_ context.Context, _ uuid.UUID, cartID int64, active bool) (*models.Cart, error) {
			called = true
			require.Equal(t, int64(4), cartID)
			require.False(t, active)
			return &models.Cart{ID: cartID}, nil
		},
	}
	resp, _ := serve(t, http.MethodPatch, "/cart/{cartId}", "/cart/4", `{}`, uuid.New(), enums.RoleCustomer, CartSetActive(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.False(t, called)

	resp, _ = serve(t, http.MethodPatch, "/cart/{cartId}", "/cart/4", `{"is_active":false}`, uuid.New(), enums.RoleCustomer, CartSetActive(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, called)
}

func TestCartAddItemStatusFollowsOutcome(t *testing.T) {
	customer := uuid.New()
	outcome := cartsvc.OutcomeCreated
	svc := stubCartService{
		addItem: func(_ context.Context, input cartsvc.AddItemInput) (*cartsvc.AddItemResult, error) {
			require.Equal(t, customer, input.CustomerID)
			require.Equal(t, int64(3), input.ProductID)
			require.Equal(t, 2, input.Quantity)
			return &cartsvc.AddItemResult{Item: models.CartItem{ID: 9, Quantity: input.Quantity}, Outcome: outcome}, nil
		},
	}
	body := `{"product_id":3,"color_variation_id":5,"size_variation_id":6,"quantity":2}`

	resp, env := serve(t, http.MethodPost, "/cart/items", "/cart/items", body, customer, enums.RoleCustomer, CartAddItem(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)
	var added addItemResponse
	require.NoError(t, json.Unmarshal(env.Data, &added))
	require.Equal(t, cartsvc.OutcomeCreated, added.Outcome)

	outcome = cartsvc.OutcomeMerged
	resp, _ = serve(t, http.MethodPost, "/cart/items", "/cart/items", body, customer, enums.RoleCustomer, CartAddItem(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestCartAddItemValidationDetails(t *testing.T) {
	svc := stubCartService{
		addItem: func(context.Context, cartsvc.AddItemInput) (*cartsvc.AddItemResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item").WithDetails(map[string]string{"quantity": "must be at least 1"})
		},
	}
	resp, env := serve(t, http.MethodPost, "/cart/items", "/cart/items", `{"product_id":3,"color_variation_id":5,"size_variation_id":6,"quantity":0}`, uuid.New(), enums.RoleCustomer, CartAddItem(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.JSONEq(t, `{"quantity":"must be at least 1"}`, string(env.Error.Details))
}

func TestCartUpdateAndRemoveItem(t *testing.T) {
	svc := stubCartService{
		update: func(_ context.Context, _ uuid.UUID, itemID int64, quantity int) (*models.CartItem, error) {
			return &models.CartItem{ID: itemID, Quantity: quantity}, nil
		},
		remove: func(_ context.Context, _ uuid.UUID, itemID int64) error {
			if itemID == 404 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return nil
		},
	}
	resp, _ := serve(t, http.MethodPatch, "/cart/items/{itemId}", "/cart/items/2", `{"quantity":5}`, uuid.New(), enums.RoleCustomer, CartUpdateItem(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	resp, _ = serve(t, http.MethodDelete, "/cart/items/{itemId}", "/cart/items/2", "", uuid.New(), enums.RoleCustomer, CartRemoveItem(svc, testLogger()))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp, _ = serve(t, http.MethodDelete, "/cart/items/{itemId}", "/cart/items/404", "", uuid.New(), enums.RoleCustomer, CartRemoveItem(svc, testLogger()))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = serve(t, http.MethodDelete, "/cart/items/{itemId}", "/cart/items/abc", "", uuid.New(), enums.RoleCustomer, CartRemoveItem(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCartClearReturnsRemovedCount(t *testing.T) {
	svc := stubCartService{
		clear: func(context.Context, uuid.UUID, int64) (int64, error) { return 3, nil },
	}
	resp, env := serve(t, http.MethodDelete, "/cart/{cartId}/items", "/cart/8/items", "", uuid.New(), enums.RoleCustomer, CartClear(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"removed":3}`, string(env.Data))
}

const orderBody = `{
	"total_items": 2,
	"shipping_address": "  12 Elm Street  ",
	"sub_total": 2000,
	"tax": 0,
	"shipping_charge": 100,
	"total_amount": 2100,
	"final_amount": 2100,
	"payment_method": "cod",
	"items": [{"product_id": 3, "color_variation_id": 5, "size_variation_id": 6, "product_name": "Linen Shirt", "quantity": 2, "unit_price": 1000, "total_price": 2000}]
}`

func TestOrderCreateMapsLines(t *testing.T) {
	customer := uuid.New()
	svc := stubOrdersService{
		create: func(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			require.Equal(t, customer, input.CustomerID)
			require.Equal(t, customer, input.Actor.CustomerID)
			require.Equal(t, "12 Elm Street", input.Fields.ShippingAddress)
			require.Len(t, input.Items, 1)
			require.Equal(t, int64(5), *input.Items[0].ColorVariationID)
			return &models.Order{ID: uuid.New(), CustomerID: customer, Status: enums.OrderStatusPending}, nil
		},
	}
	resp, env := serve(t, http.MethodPost, "/orders", "/orders", orderBody, customer, enums.RoleCustomer, OrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)

	var order orderResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	require.Equal(t, customer, order.CustomerID)
}

func TestOrderCreateLineShape(t *testing.T) {
	var got []orders.LineInput
	svc := stubOrdersService{
		create: func(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			got = input.Items
			return &models.Order{ID: uuid.New(), CustomerID: input.CustomerID, Status: enums.OrderStatusPending}, nil
		},
	}

	body := `{"shipping_address":"x","payment_method":"cod","items":[]}`
	resp, _ := serve(t, http.MethodPost, "/orders", "/orders", body, uuid.New(), enums.RoleCustomer, OrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Empty(t, got)

	body = `{"shipping_address":"x","payment_method":"cod","items":[{"product_id":999999,"quantity":1}]}`
	resp, _ = serve(t, http.MethodPost, "/orders", "/orders", body, uuid.New(), enums.RoleCustomer, OrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, got, 1)
	require.Equal(t, int64(999999), *got[0].ProductID)
	require.Empty(t, got[0].ProductName)

	body = `{"shipping_address":"x","payment_method":"cod","items":[{"quantity":1}]}`
	resp, env := serve(t, http.MethodPost, "/orders", "/orders", body, uuid.New(), enums.RoleCustomer, OrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, string(env.Error.Details), "items[0].product_name")
}

func TestOrderCreateSurfacesStockConflict(t *testing.T) {
	svc := stubOrdersService{
		create: func(context.Context, orders.CreateOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{"lines": []int{0}})
		},
	}
	resp, _ := serve(t, http.MethodPost, "/orders", "/orders", orderBody, uuid.New(), enums.RoleCustomer, OrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestCheckoutUsesDefaultClearFlag(t *testing.T) {
	var got []bool
	svc := stubOrdersService{
		checkout: func(_ context.Context, input orders.CheckoutInput) (*orders.CheckoutResult, error) {
			got = append(got, input.ClearCart)
			return &orders.CheckoutResult{Order: &models.Order{ID: uuid.New()}, CartID: 3}, nil
		},
	}
	base := `{"shipping_address":"x","payment_method":"cod","total_items":1}`
	resp, _ := serve(t, http.MethodPost, "/checkout", "/checkout", base, uuid.New(), enums.RoleCustomer, Checkout(svc, true, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)

	explicit := `{"shipping_address":"x","payment_method":"cod","total_items":1,"clear_cart":false}`
	resp, _ = serve(t, http.MethodPost, "/checkout", "/checkout", explicit, uuid.New(), enums.RoleCustomer, Checkout(svc, true, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)

	require.Equal(t, []bool{true, false}, got)
}

func TestOrderListScopesToCaller(t *testing.T) {
	customer := uuid.New()
	svc := stubOrdersService{
		list: func(_ context.Context, params orders.ListParams) (*orders.OrderList, error) {
			require.NotNil(t, params.CustomerID)
			require.Equal(t, customer, *params.CustomerID)
			require.Equal(t, 10, params.Limit)
			require.Equal(t, enums.OrderStatusShipped, *params.Status)
			return &orders.OrderList{NextCursor: "abc"}, nil
		},
	}
	resp, env := serve(t, http.MethodGet, "/orders", "/orders?limit=10&status=shipped", "", customer, enums.RoleCustomer, OrderList(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"orders":[],"next_cursor":"abc"}`, string(env.Data))

	resp, _ = serve(t, http.MethodGet, "/orders", "/orders?status=lost", "", customer, enums.RoleCustomer, OrderList(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderDetailIncludesItems(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrdersService{
		get: func(_ context.Context, actor orders.Actor, id uuid.UUID) (*orders.OrderDetail, error) {
			require.Equal(t, orderID, id)
			require.Equal(t, enums.RoleCustomer, actor.Role)
			return &orders.OrderDetail{
				Order: models.Order{ID: id},
				Items: []models.OrderItem{{ID: 1, ProductName: "Linen Shirt", Quantity: 2}},
			}, nil
		},
	}
	resp, env := serve(t, http.MethodGet, "/orders/{orderId}", "/orders/"+orderID.String(), "", uuid.New(), enums.RoleCustomer, OrderDetail(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	var order orderResponse
	require.NoError(t, json.Unmarshal(env.Data, &order))
	require.Len(t, order.Items, 1)
}

func TestOrderUpdateParsesStatus(t *testing.T) {
	svc := stubOrdersService{
		update: func(_ context.Context, _ orders.Actor, id uuid.UUID, input orders.UpdateOrderInput) (*models.Order, error) {
			require.Equal(t, enums.OrderStatusCancelled, *input.Status)
			require.Nil(t, input.OrderNote)
			return &models.Order{ID: id, Status: *input.Status}, nil
		},
	}
	target := "/orders/" + uuid.NewString()
	resp, _ := serve(t, http.MethodPatch, "/orders/{orderId}", target, `{"status":"cancelled"}`, uuid.New(), enums.RoleCustomer, OrderUpdate(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	resp, _ = serve(t, http.MethodPatch, "/orders/{orderId}", target, `{"status":"teleported"}`, uuid.New(), enums.RoleCustomer, OrderUpdate(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp, _ = serve(t, http.MethodPatch, "/orders/{orderId}", target, `{"total_amount":1}`, uuid.New(), enums.RoleCustomer, OrderUpdate(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOrderUpdateIllegalTransition(t *testing.T) {
	svc := stubOrdersService{
		update: func(context.Context, orders.Actor, uuid.UUID, orders.UpdateOrderInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition")
		},
	}
	resp, _ := serve(t, http.MethodPatch, "/orders/{orderId}", "/orders/"+uuid.NewString(), `{"status":"delivered"}`, uuid.New(), enums.RoleCustomer, OrderUpdate(svc, testLogger()))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestAdminOrderCreateForCustomer(t *testing.T) {
	customer := uuid.New()
	svc := stubOrdersService{
		create: func(_ context.Context, input orders.CreateOrderInput) (*models.Order, error) {
			require.Equal(t, customer, input.CustomerID)
			require.True(t, input.Actor.IsAdmin())
			return &models.Order{ID: uuid.New(), CustomerID: customer}, nil
		},
	}
	body := strings.Replace(orderBody, `"total_items": 2,`, `"total_items": 2, "customer_id": "`+customer.String()+`",`, 1)
	resp, _ := serve(t, http.MethodPost, "/admin/orders", "/admin/orders", body, uuid.Nil, enums.RoleAdmin, AdminOrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusCreated, resp.Code)

	resp, env := serve(t, http.MethodPost, "/admin/orders", "/admin/orders", orderBody, uuid.Nil, enums.RoleAdmin, AdminOrderCreate(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, string(env.Error.Details), "customer_id")
}

func TestAdminOrderListFilters(t *testing.T) {
	customer := uuid.New()
	svc := stubOrdersService{
		list: func(_ context.Context, params orders.ListParams) (*orders.OrderList, error) {
			require.Equal(t, customer, *params.CustomerID)
			require.Equal(t, 25, params.Limit)
			require.Equal(t, "next", params.Cursor)
			return &orders.OrderList{}, nil
		},
	}
	resp, _ := serve(t, http.MethodGet, "/admin/orders", "/admin/orders?customer_id="+customer.String()+"&cursor=next", "", uuid.Nil, enums.RoleAdmin, AdminOrderList(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminOrderForceStatus(t *testing.T) {
	svc := stubOrdersService{
		force: func(_ context.Context, _ orders.Actor, id uuid.UUID, status enums.OrderStatus, reason string) (*models.Order, error) {
			require.Equal(t, enums.OrderStatusDelivered, status)
			require.Equal(t, "carrier confirmed", reason)
			return &models.Order{ID: id, Status: status}, nil
		},
	}
	pattern := "/admin/orders/{orderId}/force-status"
	target := "/admin/orders/" + uuid.NewString() + "/force-status"
	resp, _ := serve(t, http.MethodPost, pattern, target, `{"status":"delivered","reason":" carrier confirmed "}`, uuid.Nil, enums.RoleAdmin, AdminOrderForceStatus(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	resp, _ = serve(t, http.MethodPost, pattern, target, `{"status":"delivered"}`, uuid.Nil, enums.RoleAdmin, AdminOrderForceStatus(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInventoryVariantQuantity(t *testing.T) {
	svc := stubInventoryService{
		quantity: func(_ context.Context, productID, colorID, sizeID int64) (int, error) {
			require.Equal(t, []int64{3, 5, 6}, []int64{productID, colorID, sizeID})
			return 4, nil
		},
	}
	pattern := "/inventory/products/{productId}/variants"
	resp, env := serve(t, http.MethodGet, pattern, "/inventory/products/3/variants?color_id=5&size_id=6", "", uuid.New(), enums.RoleCustomer, InventoryVariantQuantity(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"product_id":3,"color_variation_id":5,"size_variation_id":6,"available_quantity":4}`, string(env.Data))

	resp, _ = serve(t, http.MethodGet, pattern, "/inventory/products/3/variants?color_id=5", "", uuid.New(), enums.RoleCustomer, InventoryVariantQuantity(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInventoryProductStock(t *testing.T) {
	svc := stubInventoryService{
		stock: func(_ context.Context, productID int64) (*inventory.ProductStock, error) {
			return &inventory.ProductStock{
				ProductID: productID,
				InStock:   true,
				Total:     4,
				Variants:  []models.ProductInventory{{ID: 1, ProductID: productID, AvailableQuantity: 4}},
			}, nil
		},
	}
	resp, env := serve(t, http.MethodGet, "/inventory/products/{productId}", "/inventory/products/3", "", uuid.New(), enums.RoleCustomer, InventoryProductStock(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)

	var stock productStockResponse
	require.NoError(t, json.Unmarshal(env.Data, &stock))
	require.True(t, stock.InStock)
	require.Len(t, stock.Variants, 1)
}

func TestAdminInventoryUpsertRequiresQuantity(t *testing.T) {
	svc := stubInventoryService{
		upsert: func(_ context.Context, input inventory.UpsertInput) (*models.ProductInventory, error) {
			return &models.ProductInventory{ID: 1, ProductID: input.ProductID, AvailableQuantity: input.AvailableQuantity}, nil
		},
	}
	resp, _ := serve(t, http.MethodPut, "/inventory", "/inventory", `{"product_id":3,"color_variation_id":5,"size_variation_id":6}`, uuid.Nil, enums.RoleAdmin, AdminInventoryUpsert(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp, _ = serve(t, http.MethodPut, "/inventory", "/inventory", `{"product_id":3,"color_variation_id":5,"size_variation_id":6,"available_quantity":0}`, uuid.Nil, enums.RoleAdmin, AdminInventoryUpsert(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminInventoryDelete(t *testing.T) {
	svc := stubInventoryService{
		remove: func(_ context.Context, id int64) (*models.ProductInventory, error) {
			if id != 7 {
				return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory %d not found", id)
			}
			return &models.ProductInventory{ID: 7, ProductID: 3, AvailableQuantity: 2}, nil
		},
	}
	pattern := "/inventory/{inventoryId}"

	resp, env := serve(t, http.MethodDelete, pattern, "/inventory/7", "", uuid.Nil, enums.RoleAdmin, AdminInventoryDelete(svc, testLogger()))
	require.Equal(t, http.StatusOK, resp.Code)
	var row inventoryResponse
	require.NoError(t, json.Unmarshal(env.Data, &row))
	require.Equal(t, int64(7), row.ID)

	resp, _ = serve(t, http.MethodDelete, pattern, "/inventory/8", "", uuid.Nil, enums.RoleAdmin, AdminInventoryDelete(svc, testLogger()))
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = serve(t, http.MethodDelete, pattern, "/inventory/abc", "", uuid.Nil, enums.RoleAdmin, AdminInventoryDelete(svc, testLogger()))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp, _ := serve(t, http.MethodGet, "/ready", "/ready", "", uuid.Nil, "", HealthReady(cfg, testLogger(), stubPinger{}, stubPinger{}))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-Storefront-Env"))

	resp, env := serve(t, http.MethodGet, "/ready", "/ready", "", uuid.Nil, "", HealthReady(cfg, testLogger(), stubPinger{}, stubPinger{err: errors.New("connection refused")}))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.JSONEq(t, `{"redis":"connection refused"}`, string(env.Error.Details))
}
