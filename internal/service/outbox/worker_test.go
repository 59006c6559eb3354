package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
	"github.com/vladislavdragonenkov/shop-orders/internal/metrics"
	"github.com/vladislavdragonenkov/shop-orders/internal/storage/memory"
)

func enqueueOrderEvent(t *testing.T, repo domain.OutboxRepository, orderID, eventType string) domain.OutboxMessage {
	t.Helper()

	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"` + orderID + `","status":"PENDING"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return msg
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	first := enqueueOrderEvent(t, repo, "order-1", domain.EventOrderCreated)
	second := enqueueOrderEvent(t, repo, "order-1", domain.EventOrderStatusChanged)
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	published := publisher.messages()
	if len(published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(published))
	}
	if published[0].ID != first.ID || published[1].ID != second.ID {
		t.Fatalf("events published out of order: %s, %s", published[0].ID, published[1].ID)
	}

	pending, err := repo.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	msg := enqueueOrderEvent(t, repo, "order-2", domain.EventOrderDeleted)
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlqPublisher := &stubPublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}

	dlq := dlqPublisher.messages()
	if len(dlq) != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", len(dlq))
	}
	if dlq[0].AggregateID != "order-2" || dlq[0].EventType != domain.EventOrderDeleted {
		t.Fatalf("unexpected DLQ message: %+v", dlq[0])
	}

	var envelope map[string]any
	if err := json.Unmarshal(dlq[0].Payload, &envelope); err != nil {
		t.Fatalf("DLQ payload is not JSON: %v", err)
	}
	if envelope["outbox_id"] != msg.ID {
		t.Fatalf("unexpected outbox_id in DLQ payload: %v", envelope["outbox_id"])
	}
	if envelope["publish_error"] == "" {
		t.Fatal("expected publish_error in DLQ payload")
	}

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("failed event must leave the backlog, pending=%d", stats.PendingCount)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	enqueueOrderEvent(t, repo, "order-3", domain.EventOrderUpdated)
	publisher := &stubPublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected event marked sent, pending=%d", stats.PendingCount)
	}
}

func TestWorker_ProcessOnce_CancelledContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	enqueueOrderEvent(t, repo, "order-4", domain.EventOrderCreated)
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewWorker(repo, publisher).ProcessOnce(ctx)

	if got := publisher.calls(); got != 0 {
		t.Fatalf("expected no publish on cancelled context, got %d", got)
	}
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil, WithRetryBaseDelay(10*time.Millisecond))
	if got := worker.retryBackoff(1); got != 10*time.Millisecond {
		t.Fatalf("attempt 1: expected 10ms, got %s", got)
	}
	if got := worker.retryBackoff(3); got != 40*time.Millisecond {
		t.Fatalf("attempt 3: expected 40ms, got %s", got)
	}

	noDelay := NewWorker(nil, nil, WithRetryBaseDelay(0))
	if got := noDelay.retryBackoff(5); got != 0 {
		t.Fatalf("expected zero backoff, got %s", got)
	}
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	published      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) messages() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.published...)
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	publisher := &stubPublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	enqueueOrderEvent(t, repo, "order-5", domain.EventOrderCreated)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	if got := len(publisher.messages()); got != 1 {
		t.Fatalf("expected event published by polling loop, got %d", got)
	}
}

func TestWorker_DeadLetterAndMetrics(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	msg := enqueueOrderEvent(t, repo, "order-6", domain.EventOrderStatusChanged)
	publisher := &stubPublisher{err: errors.New("leader not available")}
	dlqPublisher := &stubPublisher{}
	reg := prometheus.NewRegistry()
	outboxMetrics := metrics.NewOutboxMetrics(reg)
	failedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithMetrics(outboxMetrics),
		WithClock(func() time.Time { return failedAt }),
		WithMaxAttempts(2),
		WithRetryBaseDelay(0),
	)
	worker.ProcessOnce(context.Background())

	dlq := dlqPublisher.messages()
	if len(dlq) != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", len(dlq))
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(dlq[0].Payload, &dl); err != nil {
		t.Fatalf("decode dead letter: %v", err)
	}
	if dl.OutboxID != msg.ID || dl.AggregateID != "order-6" || dl.EventType != domain.EventOrderStatusChanged {
		t.Fatalf("unexpected dead letter: %+v", dl)
	}
	if !dl.DLQPublishedAt.Equal(failedAt) {
		t.Fatalf("expected dlq time %s, got %s", failedAt, dl.DLQPublishedAt)
	}
	if string(dl.Payload) != string(msg.Payload) {
		t.Fatalf("original payload lost: %s", dl.Payload)
	}

	expected := `
		# HELP shop_orders_outbox_publish_attempts_total Total number of order event publish attempts grouped by event type and result.
		# TYPE shop_orders_outbox_publish_attempts_total counter
		shop_orders_outbox_publish_attempts_total{event_type="order.status_changed",result="dlq"} 1
		shop_orders_outbox_publish_attempts_total{event_type="order.status_changed",result="failed"} 1
		shop_orders_outbox_publish_attempts_total{event_type="order.status_changed",result="retry_error"} 2
	`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "shop_orders_outbox_publish_attempts_total"); err != nil {
		t.Fatalf("unexpected publish metrics: %v", err)
	}
	if err := testutil.GatherAndCompare(reg, strings.NewReader(`
		# HELP shop_orders_outbox_pending_records Current number of order events waiting in the outbox.
		# TYPE shop_orders_outbox_pending_records gauge
		shop_orders_outbox_pending_records 0
	`), "shop_orders_outbox_pending_records"); err != nil {
		t.Fatalf("unexpected backlog gauge: %v", err)
	}
}

func TestWorker_StopDuringRetryKeepsEventPending(t *testing.T) {
	t.Parallel()

	repo := memory.NewStore().Repositories().Outbox
	enqueueOrderEvent(t, repo, "order-7", domain.EventOrderCreated)
	dlqPublisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	publisher := &cancellingPublisher{cancel: cancel}

	worker := NewWorker(repo, publisher, WithDLQPublisher(dlqPublisher), WithRetryBaseDelay(time.Second), WithMaxAttempts(3))
	worker.ProcessOnce(ctx)

	if got := len(dlqPublisher.messages()); got != 0 {
		t.Fatalf("expected no DLQ publish on shutdown, got %d", got)
	}
	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected event to stay pending, pending=%d", stats.PendingCount)
	}
}

// cancellingPublisher отменяет контекст воркера на первой же попытке.
type cancellingPublisher struct {
	cancel context.CancelFunc
}

func (p *cancellingPublisher) Publish(context.Context, domain.OutboxMessage) error {
	p.cancel()
	return errors.New("broker unavailable")
}
