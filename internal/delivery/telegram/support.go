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

const takenByOtherText = "ℹ️ Запрос уже принят другим менеджером."

func supportCloseKeyboard(sessionID int64) *tgbotapi.InlineKeyboardMarkup {
	return keyboard(row(button("🔚 Завершить чат", "sup_close_"+strconv.FormatInt(sessionID, 10))))
}

func queueKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return keyboard(
		row(button("📋 Очередь", "sup_queue")),
		row(button("← Админ", "adm_back")),
	)
}

func adminBackKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return keyboard(row(button("← Админ", "adm_back")))
}

func parseSessionID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	return id, err == nil && id > 0
}

func historyLine(m entity.SupportMessage) string {
	icon := "👤"
	if m.Sender == entity.SenderAdmin {
		icon = "👨‍💼"
	}
	return icon + " " + notification.Escape(m.Text)
}

func (h *BotHandler) handleSupport(ctx context.Context, chatID int64) {
	sess, ok, err := h.support.GetActiveOrWaiting(ctx, chatID)
	if err != nil {
		h.reply(chatID, "support", err)
		return
	}
	if ok {
		switch sess.Status {
		case entity.SessionActive:
			_, _ = h.out.send(chatID, "💬 <b>Вы уже в чате с менеджером.</b>\n\nПросто пишите сообщение — оно будет переслано.\n\nДля завершения: /endchat", nil)
			return
		case entity.SessionWaiting:
			_, _ = h.out.send(chatID, "⏳ <b>Ваш запрос уже в очереди.</b>\n\nМенеджер скоро подключится. Пока можете описать проблему — всё будет переслано.", nil)
			return
		}
	}
	h.setState(ctx, chatID, repository.ChatState{Action: repository.ActionAwaitSupportQuestion})
	_, _ = h.out.send(chatID,
		"💬 <b>Связь с менеджером</b>\n\nОпишите ваш вопрос или проблему одним сообщением.\nМенеджер получит его и подключится к диалогу.",
		keyboard(row(button("← Отмена", "support_cancel"))))
}

// handleSupportQuestion opens a waiting session and alerts every operator.
func (h *BotHandler) handleSupportQuestion(ctx context.Context, m textUpdate) {
	snap, err := h.support.BuildSnapshot(ctx, m.chatID, firstName(m.from), userName(m.from), m.text)
	if err != nil {
		h.reply(m.chatID, "support_snapshot", err)
		return
	}
	sess, err := h.support.Create(ctx, m.chatID, snap)
	if err != nil {
		h.reply(m.chatID, "support_create", err)
		return
	}
	h.clearState(ctx, m.chatID)

	_, _ = h.out.send(m.chatID,
		"✅ <b>Запрос отправлен!</b>\n\n⏳ Ожидайте подключения менеджера.\n"+
			"Вы можете продолжать писать — все сообщения будут сохранены и переданы.\n\nДля отмены: /endchat", nil)

	queued := 0
	if waiting, err := h.support.ListWaiting(ctx); err == nil {
		queued = len(waiting)
	} else {
		logger.L().Warn("support queue count failed", zap.Error(err))
	}

	tg := sess.UserTG
	if tg == "" {
		tg = "—"
	}
	alert := fmt.Sprintf("🔔 <b>Новый запрос в поддержку</b>\n\n"+
		"👤 <b>%s</b> (%s)\n🆔 <code>%d</code>\n📱 %s\n🚗 %s\n\n"+
		"💬 <b>Вопрос:</b>\n%s\n\n📋 В очереди: %d",
		notification.Escape(sess.UserName), notification.Escape(tg), sess.UserID,
		notification.Escape(sess.Phone), notification.Escape(sess.Car),
		notification.Escape(sess.Question), queued)
	sid := strconv.FormatInt(sess.ID, 10)
	kb := keyboard(
		row(button("✅ Принять запрос", "sup_accept_"+sid)),
		row(button("❌ Отклонить", "sup_reject_"+sid)),
	)
	for _, op := range h.operatorIDs {
		_, _ = h.out.send(op, alert, kb)
	}
}

// forwardCustomerMessage stores customer text in the open session. It
// reports false when the customer has no open session.
func (h *BotHandler) forwardCustomerMessage(ctx context.Context, m textUpdate) bool {
	sess, relay, err := h.support.AppendCustomerMessage(ctx, m.chatID, m.text)
	if errors.Is(err, entity.ErrNoOpenSession) {
		return false
	}
	if err != nil {
		h.reply(m.chatID, "support_append", err)
		return true
	}
	if relay && sess.OperatorID != 0 {
		name := sess.UserName
		if name == "" {
			name = firstName(m.from)
		}
		_, _ = h.out.send(sess.OperatorID,
			fmt.Sprintf("👤 <b>%s:</b>\n%s", notification.Escape(name), notification.Escape(m.text)),
			supportCloseKeyboard(sess.ID))
	}
	return true
}

func (h *BotHandler) relayOperatorMessage(ctx context.Context, chatID int64, st repository.ChatState, text string) {
	sess, err := h.support.Relay(ctx, entity.RoleOperator, st.SessionID, chatID, text)
	if err != nil {
		if errors.Is(err, entity.ErrForbidden) {
			h.clearState(ctx, chatID)
			_, _ = h.out.send(chatID, takenByOtherText, queueKeyboard())
			return
		}
		if errors.Is(err, entity.ErrSessionNotActive) || errors.Is(err, entity.ErrNotFound) {
			h.clearState(ctx, chatID)
			_, _ = h.out.send(chatID, userNotice(entity.ErrSessionNotActive), nil)
			return
		}
		h.reply(chatID, "support_relay", err)
		return
	}
	_, _ = h.out.send(sess.UserID, "👨‍💼 <b>Менеджер:</b>\n"+notification.Escape(text), nil)
}

func (h *BotHandler) handleEndChat(ctx context.Context, chatID int64) {
	sess, ok, err := h.support.GetActiveOrWaiting(ctx, chatID)
	if err != nil {
		h.reply(chatID, "endchat", err)
		return
	}
	if ok {
		h.closeSession(ctx, sess.ID, entity.RoleCustomer, chatID, 0)
		return
	}
	if h.isOperator(chatID) {
		if st, bound := h.chatState(ctx, chatID); bound && st.Action == repository.ActionSupportChat {
			h.closeSession(ctx, st.SessionID, entity.RoleOperator, chatID, 0)
			return
		}
	}
	_, _ = h.out.send(chatID, userNotice(entity.ErrNoOpenSession), nil)
}

// closeSession notifies the party that did not trigger the close and drops
// the operator binding pointing at the session.
func (h *BotHandler) closeSession(ctx context.Context, sessionID int64, by entity.Role, actor int64, messageID int) {
	sess, err := h.support.Close(ctx, sessionID, by)
	if err != nil {
		if errors.Is(err, entity.ErrSessionClosed) && by == entity.RoleOperator {
			h.unbindOperator(ctx, actor, sessionID)
			h.out.edit(actor, messageID, userNotice(err), queueKeyboard())
			return
		}
		h.reply(actor, "support_close", err)
		return
	}
	name := notification.Escape(sess.UserName)

	if by == entity.RoleOperator {
		h.unbindOperator(ctx, actor, sessionID)
		h.out.edit(actor, messageID, fmt.Sprintf("🔚 Чат с <b>%s</b> завершён.", name), queueKeyboard())
		if sess.OperatorID != 0 && sess.OperatorID != actor {
			h.unbindOperator(ctx, sess.OperatorID, sessionID)
			_, _ = h.out.send(sess.OperatorID, fmt.Sprintf("🔚 Чат с <b>%s</b> закрыт другим менеджером.", name), queueKeyboard())
		}
		if sess.UserID != actor {
			_, _ = h.out.send(sess.UserID, "🔚 <b>Чат завершён менеджером.</b>\n\nЕсли остались вопросы — /support", nil)
		}
		return
	}

	_, _ = h.out.send(actor, "🔚 <b>Чат завершён.</b>\n\nЕсли остались вопросы — /support", nil)
	if sess.OperatorID != 0 {
		h.unbindOperator(ctx, sess.OperatorID, sessionID)
		_, _ = h.out.send(sess.OperatorID, fmt.Sprintf("🔚 Пользователь <b>%s</b> завершил чат.", name), queueKeyboard())
		return
	}
	for _, op := range h.operatorIDs {
		_, _ = h.out.send(op, fmt.Sprintf("🔚 Пользователь <b>%s</b> отменил запрос в поддержку.", name), queueKeyboard())
	}
}

func (h *BotHandler) unbindOperator(ctx context.Context, operatorID, sessionID int64) {
	st, ok := h.chatState(ctx, operatorID)
	if ok && st.Action == repository.ActionSupportChat && st.SessionID == sessionID {
		h.clearState(ctx, operatorID)
	}
}

func (h *BotHandler) cbSupportStart(ctx context.Context, cb callbackUpdate, _ string) string {
	h.handleSupport(ctx, cb.chatID)
	return ""
}

func (h *BotHandler) cbSupportCancel(ctx context.Context, cb callbackUpdate, _ string) string {
	h.clearState(ctx, cb.chatID)
	h.out.edit(cb.chatID, cb.messageID, "❌ Запрос отменён.", keyboard(row(button("← Меню", "back_start"))))
	return ""
}

func (h *BotHandler) cbSupportAccept(ctx context.Context, cb callbackUpdate, arg string) string {
	sid, ok := parseSessionID(arg)
	if !ok {
		return ""
	}
	sess, msgs, err := h.support.Accept(ctx, sid, cb.chatID)
	switch {
	case errors.Is(err, entity.ErrNotFound):
		h.out.edit(cb.chatID, cb.messageID, "❌ Сессия не найдена или уже закрыта.", adminBackKeyboard())
		return ""
	case errors.Is(err, entity.ErrSessionNotWaiting):
		cur, gerr := h.support.Get(ctx, sid)
		switch {
		case gerr == nil && cur.Status == entity.SessionActive && cur.OperatorID == cb.chatID:
			h.out.edit(cb.chatID, cb.messageID, "ℹ️ Вы уже в диалоге с этим пользователем.", supportCloseKeyboard(sid))
		case gerr == nil && cur.Status == entity.SessionActive:
			h.out.edit(cb.chatID, cb.messageID, takenByOtherText, adminBackKeyboard())
		default:
			h.out.edit(cb.chatID, cb.messageID, "❌ Сессия не найдена или уже закрыта.", adminBackKeyboard())
		}
		return ""
	case err != nil:
		return h.notice(cb.chatID, "support_accept", err)
	}

	h.setState(ctx, cb.chatID, repository.ChatState{
		Action:       repository.ActionSupportChat,
		SessionID:    sess.ID,
		TargetUserID: sess.UserID,
	})

	var b strings.Builder
	name := notification.Escape(sess.UserName)
	fmt.Fprintf(&b, "✅ <b>Чат с %s открыт</b>\n\n", name)
	fmt.Fprintf(&b, "👤 %s (ID: <code>%d</code>)\n📱 %s\n🚗 %s\n\n", name, sess.UserID,
		notification.Escape(sess.Phone), notification.Escape(sess.Car))
	fmt.Fprintf(&b, "💬 <b>Вопрос:</b> %s\n\n", notification.Escape(sess.Question))
	intro := b.String()
	const footer = "<i>Теперь все ваши сообщения будут пересылаться клиенту. Для завершения: /endchat</i>"

	var history string
	if len(msgs) > 1 {
		var hb strings.Builder
		hb.WriteString("📝 <b>Накопленные сообщения:</b>\n")
		for _, m := range msgs {
			hb.WriteString(historyLine(m))
			hb.WriteByte('\n')
		}
		history = hb.String()
	}
	full := intro + history
	if history != "" {
		full += "\n"
	}
	full += footer
	if len([]rune(full)) <= constants.MessageLimit {
		h.out.edit(cb.chatID, cb.messageID, full, supportCloseKeyboard(sess.ID))
	} else {
		// uzun tarix alohida xabar(lar) bilan yuboriladi
		h.out.edit(cb.chatID, cb.messageID, intro+footer, nil)
		_, _ = h.out.send(cb.chatID, history, supportCloseKeyboard(sess.ID))
	}

	_, _ = h.out.send(sess.UserID,
		"✅ <b>Менеджер подключился!</b>\n\nТеперь вы общаетесь напрямую с менеджером.\n"+
			"Просто пишите сообщения — они будут переданы.\n\nДля завершения: /endchat", nil)
	return "Чат открыт"
}

func (h *BotHandler) cbSupportReject(ctx context.Context, cb callbackUpdate, arg string) string {
	sid, ok := parseSessionID(arg)
	if !ok {
		return ""
	}
	sess, err := h.support.Reject(ctx, sid)
	if errors.Is(err, entity.ErrNotFound) || errors.Is(err, entity.ErrSessionNotWaiting) {
		h.out.edit(cb.chatID, cb.messageID, "❌ Сессия не найдена.", adminBackKeyboard())
		return ""
	}
	if err != nil {
		return h.notice(cb.chatID, "support_reject", err)
	}
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("❌ Запрос от <b>%s</b> отклонён.", notification.Escape(sess.UserName)), adminBackKeyboard())
	_, _ = h.out.send(sess.UserID,
		"❌ <b>Запрос отклонён</b>\n\nК сожалению, менеджер сейчас не может ответить.\n"+
			"Попробуйте позже или напишите: "+notification.Escape(h.supportContact), nil)
	return ""
}

func (h *BotHandler) cbSupportClose(ctx context.Context, cb callbackUpdate, arg string) string {
	sid, ok := parseSessionID(arg)
	if !ok {
		return ""
	}
	h.closeSession(ctx, sid, entity.RoleOperator, cb.chatID, cb.messageID)
	return ""
}

// cbSupportChat rebinds the operator keyboard to another active session.
func (h *BotHandler) cbSupportChat(ctx context.Context, cb callbackUpdate, arg string) string {
	sid, ok := parseSessionID(arg)
	if !ok {
		return ""
	}
	sess, err := h.support.Get(ctx, sid)
	if err != nil || sess.Status != entity.SessionActive {
		h.out.edit(cb.chatID, cb.messageID, "⚠️ Сессия не активна.", keyboard(row(button("📋 Очередь", "sup_queue"))))
		return ""
	}
	if sess.OperatorID != cb.chatID {
		h.out.edit(cb.chatID, cb.messageID, takenByOtherText, queueKeyboard())
		return ""
	}
	h.setState(ctx, cb.chatID, repository.ChatState{
		Action:       repository.ActionSupportChat,
		SessionID:    sess.ID,
		TargetUserID: sess.UserID,
	})
	msgs, err := h.support.Messages(ctx, sid, constants.SupportRecentLimit)
	if err != nil {
		return h.notice(cb.chatID, "support_history", err)
	}
	recent := "—"
	if len(msgs) > 0 {
		lines := make([]string, len(msgs))
		for i, m := range msgs {
			lines[i] = historyLine(m)
		}
		recent = strings.Join(lines, "\n")
	}
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("💬 <b>Чат с %s</b>\n\n📝 <b>Последние сообщения:</b>\n%s\n\n<i>Пишите сообщение — оно будет отправлено клиенту.</i>",
			notification.Escape(sess.UserName), recent),
		supportCloseKeyboard(sess.ID))
	return ""
}

func (h *BotHandler) cbSupportQueue(ctx context.Context, cb callbackUpdate, _ string) string {
	text, kb, err := h.supportQueue(ctx)
	if err != nil {
		return h.notice(cb.chatID, "support_queue", err)
	}
	h.out.edit(cb.chatID, cb.messageID, text, kb)
	return ""
}

// supportQueue renders active chats first, then the FIFO waiting list.
func (h *BotHandler) supportQueue(ctx context.Context) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	active, err := h.support.ListActive(ctx)
	if err != nil {
		return "", nil, err
	}
	waiting, err := h.support.ListWaiting(ctx)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("📋 <b>Очередь поддержки</b>\n\n")
	if len(active) > 0 {
		b.WriteString("🟢 <b>Активные чаты:</b>\n")
		for _, s := range active {
			count, err := h.support.CountMessages(ctx, s.ID)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&b, "  👤 <b>%s</b> (ID: <code>%d</code>)\n", notification.Escape(s.UserName), s.UserID)
			fmt.Fprintf(&b, "  💬 %s\n", notification.Escape(notification.Truncate(s.Question, constants.QuestionPreviewLen)))
			fmt.Fprintf(&b, "  📝 Сообщений: %d\n\n", count)
		}
	}
	if len(waiting) > 0 {
		b.WriteString("🟡 <b>Ожидают ответа:</b>\n")
		now := h.now()
		for i, s := range waiting {
			ago := int(now.Sub(s.CreatedAt).Minutes() + 0.5)
			fmt.Fprintf(&b, "  %d. <b>%s</b> (ID: <code>%d</code>)\n", i+1, notification.Escape(s.UserName), s.UserID)
			fmt.Fprintf(&b, "  💬 %s\n", notification.Escape(notification.Truncate(s.Question, constants.QuestionPreviewLen)))
			fmt.Fprintf(&b, "  ⏱ %d мин. назад\n\n", ago)
		}
	}
	if len(active) == 0 && len(waiting) == 0 {
		b.WriteString("Нет активных или ожидающих запросов.")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range waiting {
		rows = append(rows, row(button("✅ Принять — "+s.UserName, "sup_accept_"+strconv.FormatInt(s.ID, 10))))
	}
	for _, s := range active {
		sid := strconv.FormatInt(s.ID, 10)
		rows = append(rows, row(
			button("💬 "+s.UserName, "sup_chat_"+sid),
			button("🔚 Закрыть", "sup_close_"+sid),
		))
	}
	rows = append(rows, row(button("← Админ", "adm_back")))
	return strings.TrimRight(b.String(), "\n"), keyboard(rows...), nil
}
