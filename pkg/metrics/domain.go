package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts order, quote and cart events.
type DomainMetrics struct {
	ordersPlaced       prometheus.Counter
	orderTransitions   *prometheus.CounterVec
	quoteTransitions   *prometheus.CounterVec
	quotesDeclined     prometheus.Counter
	cartRemoteFailures *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters. A nil registerer yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders created at checkout.",
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Order status changes by source and target status.",
		}, []string{"from", "to"}),
		quoteTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_quote_transitions_total",
			Help: "Quote request status changes by source and target status.",
		}, []string{"from", "to"}),
		quotesDeclined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_quotes_declined_total",
			Help: "Quote requests archived as declined.",
		}),
		cartRemoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_remote_failures_total",
			Help: "Cart writes that failed remotely after an optimistic local update.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.ordersPlaced, m.orderTransitions, m.quoteTransitions, m.quotesDeclined, m.cartRemoteFailures)
	return m
}

func (m *DomainMetrics) OrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *DomainMetrics) OrderTransition(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) QuoteTransition(from, to string) {
	if m == nil || m.quoteTransitions == nil {
		return
	}
	m.quoteTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *DomainMetrics) QuoteDeclined() {
	if m == nil || m.quotesDeclined == nil {
		return
	}
	m.quotesDeclined.Inc()
}

// CartRemoteFailure records a failed remote cart write for op (add, update, remove, clear, load).
func (m *DomainMetrics) CartRemoteFailure(op string) {
	if m == nil || m.cartRemoteFailures == nil {
		return
	}
	m.cartRemoteFailures.WithLabelValues(normalizeLabel(op)).Inc()
}
