package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

// OrderPlaced is emitted once per created order.
type OrderPlaced struct {
	EventID    string       `json:"event_id"`
	EventType  string       `json:"event_type"`
	Version    int          `json:"version"`
	OccurredAt time.Time    `json:"occurred_at"`
	Order      entity.Order `json:"order"`
}

// NewOrderPlaced yangi event, id uuid
func NewOrderPlaced(order entity.Order, at time.Time) OrderPlaced {
	return OrderPlaced{
		EventID:    uuid.NewString(),
		EventType:  constants.EventTypeOrderPlaced,
		Version:    constants.OrderPlacedVersion,
		OccurredAt: at,
		Order:      order,
	}
}

// DecodeOrderPlaced rejects payloads of another type or an unknown version.
func DecodeOrderPlaced(data []byte) (OrderPlaced, error) {
	var ev OrderPlaced
	if err := json.Unmarshal(data, &ev); err != nil {
		return OrderPlaced{}, fmt.Errorf("decode order placed: %w", err)
	}
	if ev.EventType != constants.EventTypeOrderPlaced {
		return OrderPlaced{}, fmt.Errorf("unexpected event type %q", ev.EventType)
	}
	if ev.Version != constants.OrderPlacedVersion {
		return OrderPlaced{}, fmt.Errorf("unsupported %s version %d", ev.EventType, ev.Version)
	}
	if ev.EventID == "" || ev.Order.ID == "" {
		return OrderPlaced{}, fmt.Errorf("order placed event without ids")
	}
	return ev, nil
}

// Publisher sends integration events out of the order manager.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
}

// Handler consumes one decoded event.
type Handler func(ctx context.Context, ev OrderPlaced) error

// NopPublisher hech narsa qilmaydi
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
