package kafka

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

// ErrNotDeadLetter — запись в DLQ не похожа на событие заказа из outbox.
var ErrNotDeadLetter = errors.New("message is not an outbox dead letter")

// DecodeDeadLetter восстанавливает исходное outbox-сообщение из записи DLQ.
func DecodeDeadLetter(value []byte) (domain.OutboxMessage, domain.DeadLetter, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return domain.OutboxMessage{}, domain.DeadLetter{}, ErrNotDeadLetter
	}
	if envelope.ID == "" || isEmptyJSON(envelope.Payload) {
		return domain.OutboxMessage{}, domain.DeadLetter{}, ErrNotDeadLetter
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &dl); err != nil {
		return domain.OutboxMessage{}, domain.DeadLetter{}, fmt.Errorf("decode dead letter payload: %w", err)
	}
	if isEmptyJSON(dl.Payload) {
		return domain.OutboxMessage{}, dl, errors.New("dead letter does not contain original event payload")
	}

	return domain.OutboxMessage{
		ID:            firstNonEmpty(dl.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dl.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dl.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dl.EventType, envelope.EventType),
		Payload:       []byte(dl.Payload),
		CreatedAt:     envelope.OccurredAt,
	}, dl, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
