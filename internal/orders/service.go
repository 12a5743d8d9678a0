package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerChecker interface {
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
}

type productFinder interface {
	FindExisting(ctx context.Context, tx *gorm.DB, ids []int64) ([]models.Product, error)
}

type stockKeeper interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) ([]inventory.ReservationResult, error)
	Release(ctx context.Context, tx *gorm.DB, requests []inventory.ReservationRequest) error
}

type cartSource interface {
	FindOrCreateActiveCart(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) (*models.Cart, error)
	LoadItems(ctx context.Context, tx *gorm.DB, cartID int64) ([]cart.ItemView, error)
	ClearItems(ctx context.Context, tx *gorm.DB, cartID int64) (int64, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service assembles orders and manages their lifecycle.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	UpdateOrder(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error)
	ForceStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus, reason string) (*models.Order, error)
	DeleteOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, params ListParams) (*OrderList, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	customers customerChecker
	products  productFinder
	inventory stockKeeper
	carts     cartSource
	outbox    outboxPublisher
	logg      *logger.Logger
	metrics   *metrics.CommerceMetrics
}

// NewService builds the order service. metrics may be nil.
func NewService(
	repo Repository,
	tx txRunner,
	customers customerChecker,
	products productFinder,
	stock stockKeeper,
	carts cartSource,
	publisher outboxPublisher,
	logg *logger.Logger,
	m *metrics.CommerceMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer checker required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		customers: customers,
		products:  products,
		inventory: stock,
		carts:     carts,
		outbox:    publisher,
		logg:      logg,
		metrics:   m,
	}, nil
}

// CreateOrder persists the order, its lines and the stock decrement in one
// transaction. Any failure leaves nothing behind.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if err := validateFields(input.Fields); err != nil {
		return nil, err
	}
	if err := validateLines(input.Items); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.assemble(ctx, tx, input.Actor, input.CustomerID, input.Fields, input.Items, nil)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		s.metrics.IncOrderRejected(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.orderCreated(ctx, order)
	return order, nil
}

// Checkout turns the customer's active cart into an order inside one
// transaction. The cart is emptied only when ClearCart is set.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	var result CheckoutResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		active, err := s.carts.FindOrCreateActiveCart(ctx, tx, input.CustomerID)
		if err != nil {
			return err
		}
		items, err := s.carts.LoadItems(ctx, tx, active.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lines := linesFromCart(items)
		fields := fieldsForCheckout(input.Fields, lines)
		if err := validateFields(fields); err != nil {
			return err
		}
		if err := validateLines(lines); err != nil {
			return err
		}
		order, err := s.assemble(ctx, tx, input.Actor, input.CustomerID, fields, lines, &active.ID)
		if err != nil {
			return err
		}
		result.Order = order
		result.CartID = active.ID

		if input.ClearCart {
			cleared, err := s.carts.ClearItems(ctx, tx, active.ID)
			if err != nil {
				return err
			}
			result.ItemsCleared = cleared
		}
		return nil
	})
	if err != nil {
		s.metrics.IncOrderRejected(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.orderCreated(ctx, result.Order)
	return &result, nil
}

func (s *service) assemble(ctx context.Context, tx *gorm.DB, actor Actor, customerID uuid.UUID, fields OrderFields, lines []LineInput, cartID *int64) (*models.Order, error) {
	exists, err := s.customers.Exists(ctx, tx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}

	repo := s.repo.WithTx(tx)
	order := &models.Order{
		CustomerID:      customerID,
		TotalItems:      fields.TotalItems,
		ShippingAddress: fields.ShippingAddress,
		SubTotal:        fields.SubTotal,
		Tax:             fields.Tax,
		ShippingCharge:  fields.ShippingCharge,
		TotalAmount:     fields.TotalAmount,
		FinalAmount:     fields.FinalAmount,
		PaymentMethod:   fields.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderNote:       fields.OrderNote,
		Status:          enums.OrderStatusPending,
	}
	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if len(lines) > 0 {
		names, err := s.checkProducts(ctx, tx, lines)
		if err != nil {
			return nil, err
		}
		if err := validateVariants(lines); err != nil {
			return nil, err
		}
		if err := s.reserve(ctx, tx, lines); err != nil {
			return nil, err
		}
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, orderItem(order.ID, line, names))
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			Status:      order.Status,
			TotalItems:  order.TotalItems,
			FinalAmount: order.FinalAmount,
			LineCount:   len(lines),
			FromCart:    cartID,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return order, nil
}

// checkProducts runs one existence query over the distinct product ids and
// returns product names keyed by id.
func (s *service) checkProducts(ctx context.Context, tx *gorm.DB, lines []LineInput) (map[int64]string, error) {
	var ids []int64
	for _, line := range lines {
		if line.ProductID != nil {
			ids = append(ids, *line.ProductID)
		}
	}
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	found, err := s.products.FindExisting(ctx, tx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check products")
	}
	names := make(map[int64]string, len(found))
	foundIDs := make([]int64, 0, len(found))
	for _, p := range found {
		names[p.ID] = p.Name
		foundIDs = append(foundIDs, p.ID)
	}
	if missing := product.Missing(ids, foundIDs); len(missing) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid product ids: %s", joinIDs(missing)).
			WithDetails(map[string]any{"invalid_product_ids": missing})
	}
	return names, nil
}

func (s *service) reserve(ctx context.Context, tx *gorm.DB, lines []LineInput) error {
	requests := reservationRequests(lines)
	if len(requests) == 0 {
		return nil
	}
	results, err := s.inventory.Reserve(ctx, tx, requests)
	if err != nil {
		return err
	}
	if rejected := inventory.Rejected(results); len(rejected) > 0 {
		s.metrics.AddStockShortfalls(len(rejected))
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{
				"reason": inventory.ReasonInsufficientStock,
				"lines":  rejected,
			})
	}
	return nil
}

// UpdateOrder changes only the note and status. Status changes follow the
// transition table; customers may only cancel or return their own orders.
func (s *service) UpdateOrder(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.OrderNote == nil && input.Status == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_note or status is required")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *input.Status)
		}
		if !actor.IsAdmin() && !input.Status.ReleasesStock() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only cancel or return orders")
		}
	}

	var (
		updated *models.Order
		change  *payloads.OrderStatusChangedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadVisible(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.OrderNote != nil {
			updates["order_note"] = *input.OrderNote
		}
		if input.Status != nil && *input.Status != order.Status {
			if err := ValidateTransition(order.Status, *input.Status); err != nil {
				return err
			}
			change, err = s.changeStatus(ctx, tx, actor, order, *input.Status, false, "")
			if err != nil {
				return err
			}
			updates["status"] = *input.Status
		}
		if len(updates) > 0 {
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
			}
		}
		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if change != nil {
		s.metrics.IncStatusTransition(string(change.From), string(change.To), false)
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": updated.ID.String(),
			"from":     string(change.From),
			"to":       string(change.To),
		}), "order.status_changed")
	}
	return updated, nil
}

// ForceStatus writes any valid status, bypassing the transition table.
// Stock follows the move in or out of a released status.
func (s *service) ForceStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus, reason string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}

	var (
		updated *models.Order
		change  *payloads.OrderStatusChangedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadVisible(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status == status {
			updated = order
			return nil
		}
		change, err = s.changeStatus(ctx, tx, actor, order, status, true, reason)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, order.ID, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "force order status")
		}
		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if change != nil {
		s.metrics.IncStatusTransition(string(change.From), string(change.To), true)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": updated.ID.String(),
			"from":     string(change.From),
			"to":       string(change.To),
			"reason":   reason,
		}), "order.status_forced")
	}
	return updated, nil
}

// changeStatus applies the stock side effect of from -> to and queues the
// status event. Entering a released status restocks the lines; leaving one
// reserves them again.
func (s *service) changeStatus(ctx context.Context, tx *gorm.DB, actor Actor, order *models.Order, to enums.OrderStatus, forced bool, reason string) (*payloads.OrderStatusChangedEvent, error) {
	from := order.Status
	released := false
	if from.ReleasesStock() != to.ReleasesStock() {
		items, err := s.repo.WithTx(tx).FindItems(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		requests := reservationRequests(linesFromItems(items))
		if len(requests) > 0 {
			if to.ReleasesStock() {
				if err := s.inventory.Release(ctx, tx, requests); err != nil {
					return nil, err
				}
				released = true
			} else {
				results, err := s.inventory.Reserve(ctx, tx, requests)
				if err != nil {
					return nil, err
				}
				if rejected := inventory.Rejected(results); len(rejected) > 0 {
					return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock to reopen order").
						WithDetails(map[string]any{
							"reason": inventory.ReasonInsufficientStock,
							"lines":  rejected,
						})
				}
			}
		}
	}

	event := payloads.OrderStatusChangedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		From:          from,
		To:            to,
		Forced:        forced,
		Reason:        reason,
		StockReleased: released,
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data:          event,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
	}
	return &event, nil
}

// DeleteOrder tombstones the order. Its lines stay for history and no stock
// moves.
func (s *service) DeleteOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var deleted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadVisible(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if err := repo.SoftDelete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		var tombstone models.Order
		if err := tx.WithContext(ctx).Unscoped().First(&tombstone, "id = ?", order.ID).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload deleted order")
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderDeletedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Status:     order.Status,
				DeletedAt:  tombstone.DeletedAt.Time,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order deleted")
		}
		deleted = &tombstone
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Warn(s.logg.WithOrder(ctx, deleted.ID), "order.deleted")
	return deleted, nil
}

func (s *service) ListOrders(ctx context.Context, params ListParams) (*OrderList, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", *params.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, params.ListFilters, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{}
	list.Orders, list.NextCursor = pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	if list.Orders == nil {
		list.Orders = []models.Order{}
	}
	return list, nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.loadVisible(ctx, s.repo, actor, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	return &OrderDetail{Order: *order, Items: items}, nil
}

// loadVisible hides orders the actor may not see behind NOT_FOUND.
func (s *service) loadVisible(ctx context.Context, repo Repository, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.canSee(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) orderCreated(ctx context.Context, order *models.Order) {
	s.metrics.IncOrderCreated()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":    order.ID.String(),
		"customer_id": order.CustomerID.String(),
	}), "order.created")
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.CustomerID == uuid.Nil && actor.Role == "" {
		return nil
	}
	return &outbox.ActorRef{CustomerID: actor.CustomerID, Role: actor.Role}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
