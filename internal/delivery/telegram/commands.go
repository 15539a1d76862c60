package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/notification"
)

const (
	startText = "🚗 <b>Добро пожаловать в CarTech, %s!</b>\n\n" +
		"Здесь вы найдёте запчасти для любого авто.\n\n" +
		"📋 <b>Что я умею:</b>\n" +
		"/mycar — Мой гараж (выбрать авто)\n" +
		"/profile — Мой профиль\n" +
		"/orders — Мои заказы\n" +
		"/track — Отследить посылку\n" +
		"/support — Связь с менеджером\n" +
		"/menu — Главное меню\n" +
		"/help — Помощь\n\n" +
		"Нажмите кнопку ниже, чтобы открыть каталог 👇"

	helpText = "ℹ️ <b>CarTech — помощь</b>\n\n" +
		"<b>Команды:</b>\n" +
		"/start — Главное меню\n" +
		"/mycar — Мой гараж\n" +
		"/profile — Мой профиль\n" +
		"/orders — Мои заказы\n" +
		"/track <i>номер</i> — Отследить посылку\n\n" +
		"<b>Редактирование профиля:</b>\n" +
		"/setname <i>Имя Фамилия</i>\n" +
		"/setphone <i>+79001234567</i>\n" +
		"/setregion <i>Московская область</i>\n" +
		"/setcity <i>Серпухов</i>\n" +
		"/setaddress <i>ул. Примерная, 1</i>\n" +
		"/setemail <i>mail@example.ru</i>\n\n" +
		"<b>Поддержка:</b>\n" +
		"/support — Написать менеджеру\n" +
		"/endchat — Завершить диалог\n\n" +
		"❓ Или напишите: %s"
)

func (h *BotHandler) handleStart(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if _, err := h.profiles.Get(ctx, chatID); err != nil {
		h.reply(chatID, "start", err)
		return
	}
	name := firstName(from)
	if name == "" {
		name = "друг"
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		h.shopRow("🛒 Открыть магазин", ""),
		row(button("🚗 Выбрать авто", "garage_start")),
		row(button("👤 Мой профиль", "profile_view")),
		row(button("💬 Написать менеджеру", "support_start")),
	}
	if h.isOperator(chatID) {
		rows = append(rows, row(button("🔐 Админ-панель", "adm_back")))
	}
	_, _ = h.out.send(chatID, fmt.Sprintf(startText, notification.Escape(name)), keyboard(rows...))
}

func (h *BotHandler) handleHelp(chatID int64) {
	_, _ = h.out.send(chatID, fmt.Sprintf(helpText, notification.Escape(h.supportContact)), nil)
}

// handleMyCar shows the garage; messageID != 0 edits the wizard message in place.
func (h *BotHandler) handleMyCar(ctx context.Context, chatID int64, messageID int) {
	cars, err := h.profiles.Cars(ctx, chatID)
	if err != nil {
		h.reply(chatID, "garage", err)
		return
	}
	var b strings.Builder
	b.WriteString("🚗 <b>Мой гараж</b>\n\n")
	if len(cars) == 0 {
		b.WriteString("У вас пока нет сохранённых авто.\nДобавьте своё авто, чтобы получать подходящие запчасти!")
	} else {
		for _, c := range cars {
			if c.IsPrimary {
				b.WriteString("⭐ ")
			}
			fmt.Fprintf(&b, "<b>%s %s</b>%s\n", notification.Escape(c.Brand), notification.Escape(c.Model), carDetails(c))
		}
		b.WriteString("\nДобавьте ещё или измените основной автомобиль:")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{row(button("➕ Добавить авто", "garage_start"))}
	if len(cars) > 0 {
		rows = append(rows,
			row(button("🗑 Очистить гараж", "garage_clear")),
			h.shopRow("🛒 Подобрать запчасти", ""))
	}
	h.out.edit(chatID, messageID, b.String(), keyboard(rows...))
}

func carDetails(c entity.Car) string {
	var parts []string
	if c.Year > 0 {
		parts = append(parts, fmt.Sprint(c.Year))
	}
	if c.Engine != "" {
		parts = append(parts, notification.Escape(c.Engine))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (h *BotHandler) handleProfile(ctx context.Context, chatID int64, from *tgbotapi.User) {
	u, err := h.profiles.Get(ctx, chatID)
	if err != nil {
		h.reply(chatID, "profile", err)
		return
	}
	orNone := func(s string) string {
		if s == "" {
			return "Не указано"
		}
		return notification.Escape(s)
	}
	name := u.Name
	if name == "" {
		name = firstName(from)
	}

	var b strings.Builder
	b.WriteString("👤 <b>Мой профиль</b>\n\n")
	fmt.Fprintf(&b, "📝 Имя: <b>%s</b>\n", orNone(name))
	fmt.Fprintf(&b, "📱 Телефон: <b>%s</b>\n", orNone(u.Phone))
	fmt.Fprintf(&b, "🗺 Регион: <b>%s</b>\n", orNone(u.Region))
	fmt.Fprintf(&b, "🏙 Нас. пункт: <b>%s</b>\n", orNone(u.City))
	fmt.Fprintf(&b, "📍 Адрес: <b>%s</b>\n", orNone(u.Address))
	if u.Email != "" {
		fmt.Fprintf(&b, "✉️ Email: <b>%s</b>\n", notification.Escape(u.Email))
	}
	fmt.Fprintf(&b, "🆔 Telegram ID: <code>%d</code>\n\n", chatID)
	b.WriteString("Для редактирования профиля используйте команды:\n" +
		"<code>/setname Иван Иванов</code>\n" +
		"<code>/setphone +79001234567</code>\n" +
		"<code>/setregion Московская область</code>\n" +
		"<code>/setcity Серпухов</code>\n" +
		"<code>/setaddress ул. Примерная, д. 1</code>")

	_, _ = h.out.send(chatID, b.String(), keyboard(h.shopRow("🛒 Открыть магазин", "")))
}

// handleOrders lists the customer's orders from the shared store.
func (h *BotHandler) handleOrders(ctx context.Context, chatID int64) {
	orders, err := h.orders.ListByCustomer(ctx, chatID)
	if err != nil {
		h.reply(chatID, "orders", err)
		return
	}
	var b strings.Builder
	b.WriteString("📦 <b>Мои заказы</b>\n\n")
	if len(orders) == 0 {
		b.WriteString("У вас пока нет заказов.\nОткройте магазин, чтобы оформить первый заказ.")
	} else {
		for i, o := range orders {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(notification.OrderLine(o))
			if left := h.orders.CancelSecondsLeft(o); left > 0 {
				fmt.Fprintf(&b, "\n   ⏱ Отмена возможна ещё %d сек.", left)
			}
		}
	}
	b.WriteString("\n\nДля отслеживания посылки:\n<code>/track НОМЕР_ТРЕКА</code>")
	_, _ = h.out.send(chatID, b.String(), keyboard(h.shopRow("📦 Открыть магазин", "")))
}

func (h *BotHandler) handleTrack(chatID int64, number string) {
	number = strings.TrimSpace(number)
	if number == "" {
		_, _ = h.out.send(chatID, "📦 Введите трек-номер:\n<code>/track EMS123456789RU</code>", nil)
		return
	}
	q := url.QueryEscape(number)
	text := fmt.Sprintf("📦 <b>Отслеживание: %s</b>\n\n"+
		"🔗 Отследить на:\n"+
		"• <a href=\"%s\">Track24.ru</a>\n"+
		"• <a href=\"https://www.pochta.ru/tracking#%s\">Почта России</a>\n"+
		"• <a href=\"https://www.cdek.ru/ru/tracking?order_id=%s\">СДЭК</a>\n",
		notification.Escape(number), notification.Escape(notification.TrackURL(number)), q, q)
	_, _ = h.out.send(chatID, text, nil)
}

func (h *BotHandler) handleSetField(ctx context.Context, chatID int64, field entity.ProfileField, raw string) {
	if strings.TrimSpace(raw) == "" {
		_, _ = h.out.send(chatID, fmt.Sprintf("Укажите значение: <code>/set%s значение</code>", field), nil)
		return
	}
	value, hint, err := h.profiles.SetField(ctx, chatID, field, raw)
	if err != nil {
		h.reply(chatID, "set_"+string(field), err)
		return
	}
	if hint != "" {
		_, _ = h.out.send(chatID, fmt.Sprintf(
			"✅ %s сохранён: <b>%s</b>\n%s\n\nЕсли всё верно — ничего делать не нужно. Доставляем в любой населённый пункт.",
			field.Label(), notification.Escape(value), hint), nil)
		return
	}
	_, _ = h.out.send(chatID, fmt.Sprintf("✅ %s обновлено: <b>%s</b>", field.Label(), notification.Escape(value)), nil)
}

func (h *BotHandler) cbProfileView(ctx context.Context, cb callbackUpdate, _ string) string {
	h.handleProfile(ctx, cb.chatID, cb.from)
	return ""
}

func (h *BotHandler) cbBackStart(ctx context.Context, cb callbackUpdate, _ string) string {
	h.clearState(ctx, cb.chatID)
	h.handleStart(ctx, cb.chatID, cb.from)
	return ""
}
