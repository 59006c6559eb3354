package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
)

const tracerName = "github.com/vladislavdragonenkov/shop-orders/internal/service/orders"

// Имена операций для логов, метрик и спанов.
const (
	opCheckout     = "checkout"
	opGet          = "get"
	opListByUser   = "list_by_user"
	opListAll      = "list_all"
	opUpdate       = "update"
	opUpdateStatus = "update_status"
	opDelete       = "delete"
	opPresent      = "present"
)

// Service реализует оформление заказа из корзины и управление заказами.
// Все изменяющие операции выполняются в одной единице работы вместе с записью в outbox.
type Service struct {
	uow     domain.UnitOfWork
	logger  *log.Entry
	metrics *metrics.OrderMetrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics включает Prometheus-метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer задаёт tracer вместо глобального otel.Tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator подменяет генератор идентификаторов заказов и позиций.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService создаёт сервис заказов поверх единицы работы.
func NewService(uow domain.UnitOfWork, logger *log.Entry, opts ...Option) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	s := &Service{
		uow:    uow,
		logger: logger,
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe оборачивает операцию спаном, метриками и логированием результата.
func (s *Service) observe(ctx context.Context, operation string, fields log.Fields, fn func(ctx context.Context) error) error {
	attrs := make([]attribute.KeyValue, 0, len(fields)+1)
	attrs = append(attrs, attribute.String("operation", operation))
	for k, v := range fields {
		attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
	}

	ctx, span := s.tracer.Start(ctx, "orders."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	result := resultOf(err)
	s.metrics.RecordOperation(operation, result, time.Since(start))

	logger := s.logger.WithFields(fields).WithField("operation", operation)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		logger.Debug("order operation completed")
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	switch result {
	case metrics.ResultNotFound, metrics.ResultInvalidState:
		logger.WithError(err).Info("order operation rejected")
	case metrics.ResultIntegrity:
		logger.WithError(err).Error("order data integrity violation")
	default:
		logger.WithError(err).Error("order operation failed")
	}
	return err
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	case domain.IsInvalidState(err):
		return metrics.ResultInvalidState
	case domain.IsIntegrityViolation(err):
		return metrics.ResultIntegrity
	default:
		return metrics.ResultError
	}
}
