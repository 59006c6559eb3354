package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// OrderEvent — payload событий заказа в outbox.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	TotalPrice string    `json:"total_price"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// enqueueEvent пишет событие в outbox той же транзакцией. Метрику вызывающий
// учитывает только после коммита.
func (s *Service) enqueueEvent(ctx context.Context, repos domain.Repositories, eventType string, order domain.Order) error {
	payload, err := json.Marshal(OrderEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		TotalPrice: order.TotalPrice.StringFixed(2),
		ItemCount:  len(order.Items),
		OccurredAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	_, err = repos.Outbox.Enqueue(ctx, domain.OutboxMessage{
		ID:            s.newID(),
		AggregateType: domain.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}
