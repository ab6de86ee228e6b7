package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the order lifecycle.
type Metrics struct {
	ordersCreated   prometheus.Counter
	ordersCancelled prometheus.Counter
	orderFailures   *prometheus.CounterVec
	createDuration  prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commerce_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commerce_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commerce_order_failures_total",
			Help: "Total number of failed order operations by reason",
		}, []string{"reason"}),
		createDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "commerce_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registerer.MustRegister(m.ordersCreated, m.ordersCancelled, m.orderFailures, m.createDuration)
	return m
}

func (m *Metrics) OrderCreated(elapsed time.Duration) {
	m.ordersCreated.Inc()
	m.createDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) OrderCancelled() {
	m.ordersCancelled.Inc()
}

func (m *Metrics) OrderFailed(reason string) {
	m.orderFailures.WithLabelValues(reason).Inc()
}
