package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics counts cart and order outcomes. A nil registerer yields a
// no-op instance so services can always call it.
type CommerceMetrics struct {
	cartsCreated      prometheus.Counter
	cartItemWrites    *prometheus.CounterVec
	ordersCreated     prometheus.Counter
	ordersRejected    *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	stockShortfalls   prometheus.Counter
}

func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	m := &CommerceMetrics{
		cartsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_carts_created_total",
			Help: "Active carts created.",
		}),
		cartItemWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_item_writes_total",
			Help: "Cart item adds by outcome (created or merged).",
		}, []string{"outcome"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders committed.",
		}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_rejected_total",
			Help: "Order creations rolled back, by error code.",
		}, []string{"code"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Order status changes.",
		}, []string{"from", "to", "forced"}),
		stockShortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_stock_shortfalls_total",
			Help: "Order lines rejected for insufficient stock.",
		}),
	}
	reg.MustRegister(m.cartsCreated, m.cartItemWrites, m.ordersCreated, m.ordersRejected, m.statusTransitions, m.stockShortfalls)
	return m
}

func (m *CommerceMetrics) IncCartCreated() {
	if m == nil || m.cartsCreated == nil {
		return
	}
	m.cartsCreated.Inc()
}

func (m *CommerceMetrics) IncCartItemWrite(outcome string) {
	if m == nil || m.cartItemWrites == nil {
		return
	}
	m.cartItemWrites.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CommerceMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *CommerceMetrics) IncOrderRejected(code string) {
	if m == nil || m.ordersRejected == nil {
		return
	}
	m.ordersRejected.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *CommerceMetrics) IncStatusTransition(from, to string, forced bool) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), strconv.FormatBool(forced)).Inc()
}

func (m *CommerceMetrics) AddStockShortfalls(n int) {
	if m == nil || m.stockShortfalls == nil || n <= 0 {
		return
	}
	m.stockShortfalls.Add(float64(n))
}
