package telegram

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/notification"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// HandleOrderPlaced alerts operators about a new order once per event id.
// It satisfies events.Handler.
func (h *BotHandler) HandleOrderPlaced(ctx context.Context, ev events.OrderPlaced) error {
	fresh, err := h.events.MarkEventProcessed(ctx, ev.EventID, h.now())
	if err != nil {
		metrics.EventsTotal.WithLabelValues("in", "error").Inc()
		return fmt.Errorf("mark event %s: %w", ev.EventID, err)
	}
	if !fresh {
		metrics.EventsTotal.WithLabelValues("in", "duplicate").Inc()
		logger.L().Debug("order placed event already handled", zap.String("event_id", ev.EventID))
		return nil
	}

	text := notification.NewOrderAlert(ev.Order)
	kb := keyboard(row(button("📦 Открыть заказ", "adm_order_"+ev.Order.ID)))
	for _, op := range h.operatorIDs {
		_, _ = h.out.send(op, text, kb)
	}
	metrics.EventsTotal.WithLabelValues("in", "ok").Inc()
	logger.L().Info("order placed event handled",
		zap.String("event_id", ev.EventID),
		zap.String("order_id", ev.Order.ID))
	return nil
}
