package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label result для публикации событий из outbox.
const (
	PublishSent       = "sent"
	PublishRetryError = "retry_error"
	PublishFailed     = "failed"
	PublishDLQ        = "dlq"
	PublishDLQFailed  = "dlq_failed"
)

// OutboxMetrics описывает доставку событий заказов из outbox.
// Как и OrderMetrics, безопасен для вызова на nil.
type OutboxMetrics struct {
	publishAttempts  *prometheus.CounterVec
	pendingRecords   prometheus.Gauge
	oldestPendingAge prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики outbox; nil означает глобальный реестр.
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OutboxMetrics{
		publishAttempts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_orders_outbox_publish_attempts_total",
			Help: "Total number of order event publish attempts grouped by event type and result.",
		}, []string{"event_type", "result"})),
		pendingRecords: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shop_orders_outbox_pending_records",
			Help: "Current number of order events waiting in the outbox.",
		})),
		oldestPendingAge: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shop_orders_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending order event.",
		})),
	}
}

// RecordPublish считает попытку публикации события.
func (m *OutboxMetrics) RecordPublish(eventType, result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(eventType, result).Inc()
}

// SetBacklog выставляет размер backlog и возраст самого старого события.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.pendingRecords.Set(float64(pending))
	m.oldestPendingAge.Set(oldestAge.Seconds())
}
