package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label result для операций с заказами.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultInvalidState = "invalid_state"
	ResultIntegrity    = "integrity"
	ResultError        = "error"
)

// OrderMetrics содержит метрики операций сервиса заказов.
// Методы безопасно вызывать на nil-получателе: метрики тогда не пишутся.
type OrderMetrics struct {
	// Счётчик операций по имени и результату
	operations *prometheus.CounterVec
	// Время выполнения операций
	duration *prometheus.HistogramVec

	ordersCreated prometheus.Counter
	itemsCreated  prometheus.Counter
	outboxEvents  *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики в глобальном реестре Prometheus.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном реестре (удобно в тестах).
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		operations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_orders_operations_total",
			Help: "Total number of order operations grouped by operation and result",
		}, []string{"operation", "result"})),
		duration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shop_orders_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"})),
		ordersCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shop_orders_checkouts_total",
			Help: "Total number of orders created from carts",
		})),
		itemsCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shop_orders_checkout_items_total",
			Help: "Total number of order items created by checkout",
		})),
		outboxEvents: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_orders_outbox_enqueued_total",
			Help: "Total number of order events written to the outbox",
		}, []string{"event_type"})),
	}
}

// RecordOperation фиксирует результат и длительность операции.
func (m *OrderMetrics) RecordOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCheckout увеличивает счётчики созданных заказов и позиций.
func (m *OrderMetrics) RecordCheckout(items int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.itemsCreated.Add(float64(items))
}

// RecordOutboxEvent увеличивает счётчик событий, записанных в outbox.
func (m *OrderMetrics) RecordOutboxEvent(eventType string) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues(eventType).Inc()
}
