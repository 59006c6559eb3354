package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Типы событий жизненного цикла заказа, которые пишутся в outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// AggregateOrder — тип агрегата для outbox-сообщений о заказах.
const AggregateOrder = "order"

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// Repositories — набор репозиториев, привязанных к одному соединению или транзакции.
type Repositories struct {
	Orders   OrderRepository
	Carts    CartRepository
	Products ProductRepository
	Users    UserRepository
	Outbox   OutboxRepository
}

// UnitOfWork выполняет группу операций атомарно: либо применяются все записи, либо ни одна.
type UnitOfWork interface {
	// Repositories возвращает репозитории вне транзакции (для чтения).
	Repositories() Repositories
	// WithinTx выполняет fn в транзакции. Ошибка fn откатывает все изменения.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// DeadLetter — событие, которое не удалось опубликовать после всех попыток.
// Outbox-воркер пишет его в DLQ, dlq-reprocess восстанавливает из него исходное событие.
type DeadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

// NewDeadLetter упаковывает сообщение outbox и последнюю ошибку публикации.
func NewDeadLetter(msg OutboxMessage, publishErr error, at time.Time) DeadLetter {
	dl := DeadLetter{
		OutboxID:       msg.ID,
		AggregateType:  msg.AggregateType,
		AggregateID:    msg.AggregateID,
		EventType:      msg.EventType,
		Payload:        json.RawMessage(msg.Payload),
		DLQPublishedAt: at.UTC(),
	}
	if publishErr != nil {
		dl.PublishError = publishErr.Error()
	}
	return dl
}
