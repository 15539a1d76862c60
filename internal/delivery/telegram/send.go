package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/notification"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// sender wraps outbound Bot API calls. Every failure is logged with the
// chat id and operation and counted; callers never retry.
type sender struct {
	bot BotAPI
}

// NewNotifier returns a notification.Notifier backed by the Bot API client.
func NewNotifier(bot BotAPI) notification.Notifier {
	return &sender{bot: bot}
}

func (s *sender) Notify(_ context.Context, chatID int64, html string) error {
	var firstErr error
	for _, chunk := range splitIntoChunks(html, constants.MessageLimit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := s.bot.Send(msg); err != nil {
			s.failed("notify", chatID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// send HTML xabar, markup nil bo'lishi mumkin
func (s *sender) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if strings.TrimSpace(text) == "" {
		return tgbotapi.Message{}, fmt.Errorf("empty message for chat %d", chatID)
	}
	chunks := splitIntoChunks(text, constants.MessageLimit)
	var last tgbotapi.Message
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if markup != nil && i == len(chunks)-1 {
			msg.ReplyMarkup = *markup
		}
		sent, err := s.bot.Send(msg)
		if err != nil {
			s.failed("send", chatID, err)
			return last, err
		}
		last = sent
	}
	return last, nil
}

// edit replaces the text of an inline-keyboard message; falls back to a new
// message when there is nothing to edit.
func (s *sender) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		_, _ = s.send(chatID, text, markup)
		return
	}
	var cfg tgbotapi.EditMessageTextConfig
	if markup != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if _, err := s.bot.Request(cfg); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		s.failed("edit", chatID, err)
		_, _ = s.send(chatID, text, markup)
	}
}

func (s *sender) answer(callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := s.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		metrics.SendFailuresTotal.WithLabelValues("answer").Inc()
		logger.L().Warn("answer callback failed", zap.String("callback_id", callbackID), zap.Error(err))
	}
}

func (s *sender) document(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(doc); err != nil {
		s.failed("document", chatID, err)
		return err
	}
	return nil
}

func (s *sender) failed(op string, chatID int64, err error) {
	metrics.SendFailuresTotal.WithLabelValues(op).Inc()
	logger.L().Warn("telegram call failed",
		zap.String("op", op),
		zap.Int64("chat_id", chatID),
		zap.Error(err))
}

// splitIntoChunks matnni Telegram limitiga mos bo'laklarga ajratadi.
// Cuts prefer line breaks so HTML tags opened on a line stay balanced.
func splitIntoChunks(s string, limit int) []string {
	if limit <= 0 || len([]rune(s)) <= limit {
		return []string{s}
	}
	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		n := len([]rune(line))
		if size+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			n = len(r) - limit
		}
		current.WriteString(line)
		size += n
	}
	flush()
	return chunks
}

func keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	var nonEmpty [][]tgbotapi.InlineKeyboardButton
	for _, r := range rows {
		if len(r) > 0 {
			nonEmpty = append(nonEmpty, r)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(nonEmpty...)
	return &kb
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func row(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

// shopRow is empty when no storefront URL is configured.
func (h *BotHandler) shopRow(text, query string) []tgbotapi.InlineKeyboardButton {
	if h.webAppURL == "" {
		return nil
	}
	return row(tgbotapi.NewInlineKeyboardButtonURL(text, h.webAppURL+query))
}
