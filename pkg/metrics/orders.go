package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Checkout results used as the "result" label.
const (
	CheckoutResultCompleted = "completed"
	CheckoutResultEmpty     = "empty_cart"
	CheckoutResultFailed    = "failed"
)

// OrderMetrics tracks checkouts and delivery notifications.
type OrderMetrics struct {
	checkouts  *prometheus.CounterVec
	amount     prometheus.Histogram
	deliveries *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts partitioned by result.",
	}, []string{"result"})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "checkout_total_amount",
		Help:      "Order totals of completed checkouts.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "delivery_notifications_total",
		Help:      "Delivery notifications partitioned by notifier and result.",
	}, []string{"notifier", "result"})
	reg.MustRegister(checkouts, amount, deliveries)
	return &OrderMetrics{
		checkouts:  checkouts,
		amount:     amount,
		deliveries: deliveries,
	}
}

// ObserveCheckout counts one checkout attempt. The total is observed only for
// completed checkouts.
func (m *OrderMetrics) ObserveCheckout(result string, total decimal.Decimal) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
	if result == CheckoutResultCompleted {
		m.amount.Observe(total.InexactFloat64())
	}
}

// ObserveDelivery counts one delivery notification attempt.
func (m *OrderMetrics) ObserveDelivery(notifier string, err error) {
	if m == nil || m.deliveries == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(normalizeLabel(notifier), result).Inc()
}
