package notification

import (
	"fmt"
	"strings"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

// OrderStatusChanged is sent to the customer after an operator status change.
func OrderStatusChanged(o entity.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>Заказ #%s</b>\n\nСтатус обновлён: <b>%s</b>", Escape(o.ID), o.Status.Label())
	if o.TrackingNumber != "" && (o.Status == entity.OrderShipped || o.Status == entity.OrderDelivered) {
		fmt.Fprintf(&b, "\n🔗 Трек: <code>%s</code>", Escape(o.TrackingNumber))
	}
	switch o.Status {
	case entity.OrderDelivered:
		b.WriteString("\n\n✅ Ваш заказ доставлен! Спасибо за покупку.")
	case entity.OrderCancelled:
		b.WriteString("\n\n❌ Заказ был отменён. Приносим извинения за неудобства.")
	}
	return b.String()
}

// OrderShipped carries the tracking number, carrier and a track24 link.
func OrderShipped(o entity.Order) string {
	return fmt.Sprintf(
		"📦 <b>Заказ #%s</b>\n\n🚚 Ваш заказ отправлен!\n🔗 Трек: <code>%s</code>\n📮 Служба: %s\n\nОтследить: <a href=\"%s\">track24.ru</a>",
		Escape(o.ID), Escape(o.TrackingNumber), Escape(o.TrackingCarrier), Escape(TrackURL(o.TrackingNumber)))
}

// OrderCancelledByCustomer confirms a self-service cancellation.
func OrderCancelledByCustomer(o entity.Order) string {
	return fmt.Sprintf("❌ <b>Заказ #%s отменён</b>\n\nЕсли это ошибка, оформите заказ заново.", Escape(o.ID))
}

// OrderCancelledOperatorNotice tells operators that a customer cancelled.
func OrderCancelledOperatorNotice(o entity.Order) string {
	return fmt.Sprintf("🔴 Клиент отменил заказ <b>#%s</b> (%s)", Escape(o.ID), FormatRub(o.Total))
}

// OrderLine is one row of a customer's order list.
func OrderLine(o entity.Order) string {
	line := fmt.Sprintf("%s <b>#%s</b> — %s\n   %s · %s",
		o.Status.Emoji(), Escape(o.ID), o.Status.Label(),
		o.CreatedAt.Format("02.01.2006"), FormatRub(o.Total))
	if o.TrackingNumber != "" {
		line += fmt.Sprintf("\n   🔗 <code>%s</code>", Escape(o.TrackingNumber))
	}
	return line
}
