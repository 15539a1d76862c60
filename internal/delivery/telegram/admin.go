package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/notification"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

const adminPanelText = "🔐 <b>Админ-панель CarTech</b>\n\n" +
	"📊 <b>Статистика:</b>\n" +
	"• Заказов: <b>%d</b> (ожидают: %d)\n" +
	"• Пользователей: <b>%d</b>\n" +
	"• Гаражей: <b>%d</b>\n" +
	"• Наценка: <b>%d%%</b>\n\n" +
	"⚙️ <b>Команды:</b>\n" +
	"/admin — Эта панель\n" +
	"/aorders — Список заказов\n" +
	"/astatus <i>ID статус</i> — Сменить статус\n" +
	"/atrack <i>ID трек служба</i> — Добавить трек\n" +
	"/amarkup <i>число</i> — Установить наценку %%\n" +
	"/abroadcast <i>текст</i> — Рассылка всем\n" +
	"/ausers — Список пользователей\n" +
	"/aexport — Выгрузка заказов в Excel"

func (h *BotHandler) handleAdminCommand(ctx context.Context, m textUpdate) {
	switch m.command {
	case "admin":
		h.handleAdmin(ctx, m.chatID)
	case "aorders":
		h.showOrders(ctx, m.chatID, 0)
	case "ausers":
		h.showUsers(ctx, m.chatID)
	case "astatus":
		h.adminStatusCmd(ctx, m.chatID, m.args)
	case "atrack":
		h.adminTrackCmd(ctx, m.chatID, m.args)
	case "amarkup":
		h.adminMarkup(ctx, m.chatID, m.args)
	case "abroadcast":
		h.adminBroadcast(ctx, m.chatID, m.args)
	case "aexport":
		h.adminExport(ctx, m.chatID)
	}
}

func (h *BotHandler) handleAdmin(ctx context.Context, chatID int64) {
	st, err := h.orders.Stats(ctx)
	if err != nil {
		h.reply(chatID, "admin_stats", err)
		return
	}
	markup, err := h.pricing.Markup(ctx)
	if err != nil {
		h.reply(chatID, "admin_markup", err)
		return
	}
	waiting, err := h.support.ListWaiting(ctx)
	if err != nil {
		h.reply(chatID, "admin_queue", err)
		return
	}
	active, err := h.support.ListActive(ctx)
	if err != nil {
		h.reply(chatID, "admin_queue", err)
		return
	}

	supportLabel := "💬 Поддержка"
	switch {
	case len(waiting) > 0:
		supportLabel += fmt.Sprintf(" (%d ⏳)", len(waiting))
	case len(active) > 0:
		supportLabel += fmt.Sprintf(" (%d 🟢)", len(active))
	}
	_, _ = h.out.send(chatID,
		fmt.Sprintf(adminPanelText, st.Orders, st.PendingOrders, st.Users, st.Garages, markup),
		keyboard(
			row(button("📦 Заказы", "adm_orders")),
			row(button(supportLabel, "sup_queue")),
			row(button("👥 Пользователи", "adm_users"), button("💰 Наценка", "adm_markup")),
			row(button("📊 Экспорт", "adm_export")),
		))
}

func (h *BotHandler) cbAdmin(ctx context.Context, cb callbackUpdate, _ string) string {
	h.clearAdminWizard(ctx, cb.chatID)
	h.handleAdmin(ctx, cb.chatID)
	return ""
}

// clearAdminWizard drops a pending tracking prompt but keeps a support binding.
func (h *BotHandler) clearAdminWizard(ctx context.Context, chatID int64) {
	if st, ok := h.chatState(ctx, chatID); ok && st.Action == repository.ActionAdminAwaitTracking {
		h.clearState(ctx, chatID)
	}
}

func (h *BotHandler) showOrders(ctx context.Context, chatID int64, messageID int) {
	orders, err := h.orders.ListRecent(ctx, 0)
	if err != nil {
		h.reply(chatID, "admin_orders", err)
		return
	}
	if len(orders) == 0 {
		h.out.edit(chatID, messageID, "📦 <b>Заказы</b>\n\nЗаказов пока нет.", adminBackKeyboard())
		return
	}

	shown := orders[:min(len(orders), constants.AdminOrdersListLimit)]
	lines := make([]string, len(shown))
	for i, o := range shown {
		name := o.Customer.Name
		if name == "" {
			name = "?"
		}
		place := o.Customer.City
		if o.Customer.Region != "" {
			place = o.Customer.Region + ", " + o.Customer.City
		}
		line := fmt.Sprintf("%s <b>#%s</b> — %s\n   %s · %s\n   %s\n   📅 %s",
			o.Status.Emoji(), notification.Escape(o.ID), o.Status.Label(),
			notification.Escape(name), notification.FormatRub(o.Total),
			notification.Escape(place),
			o.CreatedAt.In(h.loc).Format("02.01.2006"))
		if o.TrackingNumber != "" {
			line += " · 🔗 " + notification.Escape(o.TrackingNumber)
		}
		lines[i] = line
	}
	text := fmt.Sprintf("📦 <b>Заказы (%d)</b>\n\n%s", len(orders), strings.Join(lines, "\n\n"))
	if extra := len(orders) - len(shown); extra > 0 {
		text += fmt.Sprintf("\n\n<i>...ещё %d</i>", extra)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, o := range orders[:min(len(orders), constants.AdminOrdersButtonsLimit)] {
		rows = append(rows, row(button("#"+o.ID+" — "+o.Status.Label(), "adm_order_"+o.ID)))
	}
	rows = append(rows, row(button("← Админ", "adm_back")))
	h.out.edit(chatID, messageID, text, keyboard(rows...))
}

func (h *BotHandler) cbAdminOrders(ctx context.Context, cb callbackUpdate, _ string) string {
	h.showOrders(ctx, cb.chatID, cb.messageID)
	return ""
}

func ordersBackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return keyboard(row(button("← Заказы", "adm_orders")))
}

// showOrder renders the operator card of one order with status buttons.
func (h *BotHandler) showOrder(ctx context.Context, chatID int64, messageID int, orderID string) {
	o, err := h.orders.Get(ctx, orderID)
	if errors.Is(err, entity.ErrNotFound) {
		h.out.edit(chatID, messageID, fmt.Sprintf("❌ Заказ <b>#%s</b> не найден.", notification.Escape(orderID)), ordersBackKeyboard())
		return
	}
	if err != nil {
		h.reply(chatID, "admin_order", err)
		return
	}
	h.out.edit(chatID, messageID, h.orderCard(o), orderCardKeyboard(o))
}

func (h *BotHandler) orderCard(o entity.Order) string {
	dash := func(s, fallback string) string {
		if s == "" {
			return fallback
		}
		return notification.Escape(s)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>Заказ #%s</b>\n\n", notification.Escape(o.ID))
	fmt.Fprintf(&b, "📊 Статус: <b>%s</b>\n", o.Status.Label())
	fmt.Fprintf(&b, "👤 %s\n📱 %s\n", dash(o.Customer.Name, "?"), dash(o.Customer.Phone, "?"))
	fmt.Fprintf(&b, "🗺 %s\n🏙 %s\n📍 %s\n", dash(o.Customer.Region, "—"), dash(o.Customer.City, "—"), dash(o.Customer.Address, "—"))
	if o.Comment != "" {
		fmt.Fprintf(&b, "💬 \"%s\"\n", notification.Escape(o.Comment))
	}
	tg := "N/A"
	if owner := o.Owner(); owner != 0 {
		tg = strconv.FormatInt(owner, 10)
	}
	fmt.Fprintf(&b, "🆔 TG: %s\n\n📦 <b>Товары:</b>\n", tg)
	if len(o.Items) == 0 {
		b.WriteString("  —\n")
	}
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  • %s (%s) ×%d = %s\n", notification.Escape(it.Name), notification.Escape(it.Brand), it.Quantity, notification.FormatRub(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\n💰 <b>Итого: %s</b>\n", notification.FormatRub(o.Total))
	if o.TrackingNumber != "" {
		fmt.Fprintf(&b, "🔗 Трек: <code>%s</code> (%s)\n", notification.Escape(o.TrackingNumber), dash(o.TrackingCarrier, "?"))
	} else {
		b.WriteString("🔗 Трек: не указан\n")
	}
	b.WriteString("📅 " + o.CreatedAt.In(h.loc).Format("02.01.2006 15:04:05"))
	return b.String()
}

func orderCardKeyboard(o entity.Order) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(entity.OrderStatuses); i += 3 {
		var r []tgbotapi.InlineKeyboardButton
		for _, s := range entity.OrderStatuses[i:min(i+3, len(entity.OrderStatuses))] {
			label := s.Label()
			if s == o.Status {
				label = "✓ " + label
			}
			r = append(r, button(label, "adm_setstatus_"+o.ID+"_"+string(s)))
		}
		rows = append(rows, r)
	}
	rows = append(rows,
		row(button("📝 Добавить трек", "adm_addtrack_"+o.ID)),
		row(button("🗑 Удалить заказ", "adm_delorder_"+o.ID)),
		row(button("← Заказы", "adm_orders")),
	)
	return keyboard(rows...)
}

func (h *BotHandler) cbAdminOrder(ctx context.Context, cb callbackUpdate, orderID string) string {
	h.clearAdminWizard(ctx, cb.chatID)
	h.showOrder(ctx, cb.chatID, cb.messageID, orderID)
	return ""
}

func (h *BotHandler) cbAdminSetStatus(ctx context.Context, cb callbackUpdate, arg string) string {
	i := strings.LastIndex(arg, "_")
	if i <= 0 {
		return ""
	}
	orderID := arg[:i]
	status, ok := entity.ParseOrderStatus(arg[i+1:])
	if !ok {
		return plainNotice(userNotice(entity.ErrInvalidStatus))
	}
	o, changed, err := h.orders.SetStatus(ctx, orderID, status)
	if err != nil {
		notice := h.notice(cb.chatID, "admin_set_status", err)
		h.showOrder(ctx, cb.chatID, cb.messageID, orderID)
		return notice
	}
	h.showOrder(ctx, cb.chatID, cb.messageID, orderID)
	if !changed {
		return "Статус не изменился"
	}
	return "Статус: " + o.Status.Label()
}

func (h *BotHandler) cbAdminAddTrack(ctx context.Context, cb callbackUpdate, orderID string) string {
	h.setState(ctx, cb.chatID, repository.ChatState{Action: repository.ActionAdminAwaitTracking, OrderID: orderID})
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("📝 <b>Добавить трек к заказу #%s</b>\n\n"+
			"Отправьте трек-номер и службу доставки через пробел:\n<code>EMS123456789RU СДЭК</code>\n\n"+
			"Доступные службы: СДЭК, Почта России, DPD, Boxberry, EMS", notification.Escape(orderID)),
		keyboard(row(button("← Отмена", "adm_order_"+orderID))))
	return ""
}

func (h *BotHandler) handleAdminTrackText(ctx context.Context, chatID int64, st repository.ChatState, text string) {
	if !h.isOperator(chatID) || st.OrderID == "" {
		h.clearState(ctx, chatID)
		return
	}
	parts := strings.Fields(text)
	if len(parts) == 0 {
		h.reply(chatID, "admin_track", errEmptyInput)
		return
	}
	o, err := h.orders.SetTracking(ctx, st.OrderID, parts[0], strings.Join(parts[1:], " "))
	if err != nil {
		if _, ok := entity.AsValidation(err); !ok {
			h.clearState(ctx, chatID)
		}
		h.reply(chatID, "admin_track", err)
		return
	}
	h.clearState(ctx, chatID)
	_, _ = h.out.send(chatID,
		fmt.Sprintf("✅ Трек добавлен к заказу <b>#%s</b>\n\n🔗 %s\n📮 %s\n📊 Статус: %s\n\n%s",
			notification.Escape(o.ID), notification.Escape(o.TrackingNumber), notification.Escape(o.TrackingCarrier),
			o.Status.Label(), customerNotifiedLine(o)),
		keyboard(row(button("📦 К заказу", "adm_order_"+o.ID), button("← Админ", "adm_back"))))
}

func customerNotifiedLine(o entity.Order) string {
	if o.Owner() == 0 {
		return "Telegram клиента не указан, уведомление не отправлено."
	}
	return "Клиент уведомлён."
}

func (h *BotHandler) cbAdminDeleteOrder(ctx context.Context, cb callbackUpdate, orderID string) string {
	if err := h.orders.Delete(ctx, orderID); err != nil {
		return h.notice(cb.chatID, "admin_delete_order", err)
	}
	h.out.edit(cb.chatID, cb.messageID, fmt.Sprintf("🗑 Заказ <b>#%s</b> удалён.", notification.Escape(orderID)), ordersBackKeyboard())
	return ""
}

func statusList() string {
	names := make([]string, len(entity.OrderStatuses))
	for i, s := range entity.OrderStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func (h *BotHandler) adminStatusCmd(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		_, _ = h.out.send(chatID, "Формат: <code>/astatus ID статус</code>\n\nСтатусы: "+statusList(), nil)
		return
	}
	status, ok := entity.ParseOrderStatus(parts[1])
	if !ok {
		_, _ = h.out.send(chatID, "⚠️ Некорректный статус.\nДопустимые: "+statusList(), nil)
		return
	}
	if _, _, err := h.orders.SetStatus(ctx, parts[0], status); err != nil {
		h.replyOrder(chatID, parts[0], "admin_status_cmd", err)
		return
	}
	h.showOrder(ctx, chatID, 0, parts[0])
}

func (h *BotHandler) adminTrackCmd(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		_, _ = h.out.send(chatID, "Формат: <code>/atrack ID трек-номер [служба]</code>\n\nПример: <code>/atrack CT2602-ABC12 EMS123456RU СДЭК</code>", nil)
		return
	}
	o, err := h.orders.SetTracking(ctx, parts[0], parts[1], strings.Join(parts[2:], " "))
	if err != nil {
		h.replyOrder(chatID, parts[0], "admin_track_cmd", err)
		return
	}
	_, _ = h.out.send(chatID, fmt.Sprintf("✅ Трек добавлен к <b>#%s</b>: %s (%s)\n%s",
		notification.Escape(o.ID), notification.Escape(o.TrackingNumber), notification.Escape(o.TrackingCarrier),
		customerNotifiedLine(o)), nil)
}

// replyOrder names the order in the not-found notice.
func (h *BotHandler) replyOrder(chatID int64, orderID, op string, err error) {
	if errors.Is(err, entity.ErrNotFound) {
		_, _ = h.out.send(chatID, fmt.Sprintf("❌ Заказ #%s не найден.", notification.Escape(orderID)), nil)
		return
	}
	h.reply(chatID, op, err)
}

func (h *BotHandler) adminMarkup(ctx context.Context, chatID int64, args string) {
	val, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(args), "%"))
	if err != nil {
		current, merr := h.pricing.Markup(ctx)
		if merr != nil {
			h.reply(chatID, "admin_markup", merr)
			return
		}
		_, _ = h.out.send(chatID, fmt.Sprintf("💰 Текущая наценка: <b>%d%%</b>\n\nУстановить: <code>/amarkup 15</code> (0–%d)",
			current, constants.MaxMarkupPercent), nil)
		return
	}
	if err := h.pricing.SetMarkup(ctx, val); err != nil {
		h.reply(chatID, "admin_set_markup", err)
		return
	}
	_, _ = h.out.send(chatID, fmt.Sprintf("✅ Наценка установлена: <b>%d%%</b>", val), nil)
}

func (h *BotHandler) cbAdminMarkup(ctx context.Context, cb callbackUpdate, _ string) string {
	h.adminMarkup(ctx, cb.chatID, "")
	return ""
}

// adminBroadcast sends to every known user except operators, one by one.
func (h *BotHandler) adminBroadcast(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		_, _ = h.out.send(chatID, "Формат: <code>/abroadcast Текст сообщения</code>", nil)
		return
	}
	ids, err := h.profiles.ListUserIDs(ctx)
	if err != nil {
		h.reply(chatID, "admin_broadcast", err)
		return
	}
	msg := "📢 <b>CarTech</b>\n\n" + notification.Escape(text)
	sent, failed := 0, 0
	for _, id := range ids {
		if h.isOperator(id) {
			continue
		}
		if _, err := h.out.send(id, msg, nil); err != nil {
			failed++
			continue
		}
		sent++
	}
	logger.L().Info("broadcast finished", zap.Int("sent", sent), zap.Int("failed", failed))
	_, _ = h.out.send(chatID, fmt.Sprintf("✅ Рассылка завершена\n\n📨 Отправлено: <b>%d</b>\n❌ Ошибок: <b>%d</b>", sent, failed), nil)
}

func (h *BotHandler) showUsers(ctx context.Context, chatID int64) {
	users, err := h.profiles.ListUsers(ctx)
	if err != nil {
		h.reply(chatID, "admin_users", err)
		return
	}
	if len(users) == 0 {
		_, _ = h.out.send(chatID, "👥 <b>Пользователи</b>\n\nПока нет зарегистрированных пользователей.", nil)
		return
	}
	shown := users[:min(len(users), constants.AdminUsersListLimit)]
	lines := make([]string, 0, len(shown))
	for _, u := range shown {
		cars, err := h.profiles.Cars(ctx, u.TelegramID)
		if err != nil {
			h.reply(chatID, "admin_users", err)
			return
		}
		carNames := "нет"
		if len(cars) > 0 {
			names := make([]string, len(cars))
			for i, c := range cars {
				names[i] = notification.Escape(c.Brand + " " + c.Model)
			}
			carNames = strings.Join(names, ", ")
		}
		name := u.Name
		if name == "" {
			name = "Без имени"
		}
		phone := u.Phone
		if phone == "" {
			phone = "—"
		}
		line := fmt.Sprintf("👤 <b>%s</b> (ID: <code>%d</code>)\n   📱 %s", notification.Escape(name), u.TelegramID, notification.Escape(phone))
		if u.Region != "" {
			line += " · 🗺 " + notification.Escape(u.Region)
		}
		if u.City != "" {
			line += " · 🏙 " + notification.Escape(u.City)
		}
		lines = append(lines, line+"\n   🚗 "+carNames)
	}
	text := fmt.Sprintf("👥 <b>Пользователи (%d)</b>\n\n%s", len(users), strings.Join(lines, "\n\n"))
	if extra := len(users) - len(shown); extra > 0 {
		text += fmt.Sprintf("\n\n<i>...ещё %d</i>", extra)
	}
	_, _ = h.out.send(chatID, text, adminBackKeyboard())
}

func (h *BotHandler) cbAdminUsers(ctx context.Context, cb callbackUpdate, _ string) string {
	h.showUsers(ctx, cb.chatID)
	return ""
}

// importLegacyOrder registers an order from a forwarded "Новый заказ" alert.
func (h *BotHandler) importLegacyOrder(ctx context.Context, m textUpdate) {
	o, imported, err := h.orders.ImportLegacyAlert(ctx, m.text)
	if err != nil {
		h.reply(m.chatID, "legacy_import", err)
		return
	}
	if !imported {
		return
	}
	_, _ = h.out.send(m.chatID,
		fmt.Sprintf("✅ Заказ <b>#%s</b> зарегистрирован в админ-панели.\n\n/admin — открыть панель", notification.Escape(o.ID)),
		keyboard(row(button("📦 Открыть заказ", "adm_order_"+o.ID))))
}
