package events

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/notification"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// OperatorAlertPublisher delivers OrderPlaced as the classic "Новый заказ"
// message to every operator. It is used when no broker is configured.
type OperatorAlertPublisher struct {
	notifier  notification.Notifier
	operators []int64
}

func NewOperatorAlertPublisher(n notification.Notifier, operators []int64) *OperatorAlertPublisher {
	return &OperatorAlertPublisher{notifier: n, operators: operators}
}

func (p *OperatorAlertPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	text := notification.NewOrderAlert(ev.Order)
	var errs []error
	for _, op := range p.operators {
		if err := p.notifier.Notify(ctx, op, text); err != nil {
			logger.L().Warn("operator order alert failed",
				zap.Int64("chat_id", op),
				zap.String("order_id", ev.Order.ID),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
