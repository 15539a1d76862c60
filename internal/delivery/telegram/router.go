package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// Start botni ishga tushirish. Updates are fetched and handled one at a
// time; a poll failure waits retryDelay and tries again until ctx is done.
func (h *BotHandler) Start(ctx context.Context) error {
	if err := h.states.Reset(ctx); err != nil {
		logger.L().Warn("chat state reset failed", zap.Error(err))
	}
	logger.L().Info("bot polling started", zap.Int("timeout", h.pollTimeout))

	offset := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = h.pollTimeout
		updates, err := h.bot.GetUpdates(cfg)
		if err != nil {
			metrics.PollErrorsTotal.Inc()
			logger.L().Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", h.retryDelay))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(h.retryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			h.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate processes one update; a panic drops the update and is logged.
func (h *BotHandler) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	started := time.Now()
	in := classify(u)
	defer func() {
		if r := recover(); r != nil {
			metrics.UpdatePanicsTotal.Inc()
			logger.L().Error("update handler panic",
				zap.Int("update_id", u.UpdateID),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
		metrics.UpdateLatency.Observe(time.Since(started).Seconds())
	}()
	metrics.UpdatesProcessedTotal.WithLabelValues(in.kind()).Inc()

	switch v := in.(type) {
	case textUpdate:
		h.handleText(ctx, v)
	case callbackUpdate:
		h.handleCallback(ctx, v)
	case ignoredUpdate:
		logger.L().Debug("update ignored", zap.Int("update_id", u.UpdateID), zap.String("reason", v.reason))
	}
}

func (h *BotHandler) handleText(ctx context.Context, m textUpdate) {
	logger.L().Debug("incoming message",
		zap.Int64("chat_id", m.chatID),
		zap.String("command", m.command))

	if m.command == "" {
		if h.handleStatefulText(ctx, m) {
			return
		}
		if h.forwardCustomerMessage(ctx, m) {
			return
		}
		if h.isOperator(m.chatID) && strings.Contains(m.text, "Новый заказ #") {
			h.importLegacyOrder(ctx, m)
			return
		}
		if isMenuWord(m.text) {
			h.handleStart(ctx, m.chatID, m.from)
		}
		return
	}

	switch m.command {
	case "start", "menu", "s":
		h.handleStart(ctx, m.chatID, m.from)
	case "mycar", "garage":
		h.handleMyCar(ctx, m.chatID, 0)
	case "profile":
		h.handleProfile(ctx, m.chatID, m.from)
	case "orders":
		h.handleOrders(ctx, m.chatID)
	case "track":
		h.handleTrack(m.chatID, m.args)
	case "support":
		h.handleSupport(ctx, m.chatID)
	case "endchat":
		h.handleEndChat(ctx, m.chatID)
	case "help":
		h.handleHelp(m.chatID)
	case "setname":
		h.handleSetField(ctx, m.chatID, entity.FieldName, m.args)
	case "setphone":
		h.handleSetField(ctx, m.chatID, entity.FieldPhone, m.args)
	case "setregion":
		h.handleSetField(ctx, m.chatID, entity.FieldRegion, m.args)
	case "setcity":
		h.handleSetField(ctx, m.chatID, entity.FieldCity, m.args)
	case "setaddress":
		h.handleSetField(ctx, m.chatID, entity.FieldAddress, m.args)
	case "setemail":
		h.handleSetField(ctx, m.chatID, entity.FieldEmail, m.args)
	case "admin", "aorders", "ausers", "astatus", "atrack", "amarkup", "abroadcast", "aexport":
		if !h.isOperator(m.chatID) {
			_, _ = h.out.send(m.chatID, "⛔ Доступ запрещён.", nil)
			return
		}
		h.handleAdminCommand(ctx, m)
	default:
		logger.L().Debug("unknown command", zap.String("command", m.command))
	}
}

func isMenuWord(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "start" || t == "меню"
}

// handleStatefulText routes free text to the wizard step the chat is in.
func (h *BotHandler) handleStatefulText(ctx context.Context, m textUpdate) bool {
	st, ok := h.chatState(ctx, m.chatID)
	if !ok {
		return false
	}
	switch st.Action {
	case repository.ActionAwaitSupportQuestion:
		h.handleSupportQuestion(ctx, m)
	case repository.ActionSupportChat:
		h.relayOperatorMessage(ctx, m.chatID, st, m.text)
	case repository.ActionAwaitCustomBrand:
		h.handleCustomBrandText(ctx, m.chatID, m.text)
	case repository.ActionAwaitCustomModel:
		h.handleCustomModelText(ctx, m.chatID, st, m.text)
	case repository.ActionAwaitCustomYear:
		h.handleCustomYearText(ctx, m.chatID, st, m.text)
	case repository.ActionAwaitCustomEngine:
		h.saveCar(ctx, m.chatID, 0, st, m.text)
	case repository.ActionAdminAwaitTracking:
		h.handleAdminTrackText(ctx, m.chatID, st, m.text)
	default:
		return false
	}
	return true
}

type callbackHandler func(ctx context.Context, cb callbackUpdate, arg string) string

type callbackRoute struct {
	prefix   string
	exact    bool
	operator bool
	handle   callbackHandler
}

func (h *BotHandler) callbackRoutes() []callbackRoute {
	return []callbackRoute{
		{prefix: "garage_start", exact: true, handle: h.cbGarageStart},
		{prefix: "garage_view", exact: true, handle: h.cbGarageView},
		{prefix: "garage_clear", exact: true, handle: h.cbGarageClear},
		{prefix: "profile_view", exact: true, handle: h.cbProfileView},
		{prefix: "brand_custom", exact: true, handle: h.cbBrandCustom},
		{prefix: "brand_", handle: h.cbBrand},
		{prefix: "model_custom_", handle: h.cbModelCustom},
		{prefix: "model_", handle: h.cbModel},
		{prefix: "year_custom", exact: true, handle: h.cbYearCustom},
		{prefix: "year_", handle: h.cbYear},
		{prefix: "engine_custom", exact: true, handle: h.cbEngineCustom},
		{prefix: "engine_", handle: h.cbEngine},
		{prefix: "support_start", exact: true, handle: h.cbSupportStart},
		{prefix: "support_cancel", exact: true, handle: h.cbSupportCancel},
		{prefix: "back_start", exact: true, handle: h.cbBackStart},
		{prefix: "sup_accept_", operator: true, handle: h.cbSupportAccept},
		{prefix: "sup_reject_", operator: true, handle: h.cbSupportReject},
		{prefix: "sup_close_", operator: true, handle: h.cbSupportClose},
		{prefix: "sup_chat_", operator: true, handle: h.cbSupportChat},
		{prefix: "sup_queue", exact: true, operator: true, handle: h.cbSupportQueue},
		{prefix: "adm_back", exact: true, operator: true, handle: h.cbAdmin},
		{prefix: "adm_orders", exact: true, operator: true, handle: h.cbAdminOrders},
		{prefix: "adm_users", exact: true, operator: true, handle: h.cbAdminUsers},
		{prefix: "adm_markup", exact: true, operator: true, handle: h.cbAdminMarkup},
		{prefix: "adm_export", exact: true, operator: true, handle: h.cbAdminExport},
		{prefix: "adm_setstatus_", operator: true, handle: h.cbAdminSetStatus},
		{prefix: "adm_addtrack_", operator: true, handle: h.cbAdminAddTrack},
		{prefix: "adm_delorder_", operator: true, handle: h.cbAdminDeleteOrder},
		{prefix: "adm_order_", operator: true, handle: h.cbAdminOrder},
	}
}

func (h *BotHandler) handleCallback(ctx context.Context, cb callbackUpdate) {
	notice := ""
	defer func() { h.out.answer(cb.id, notice) }()

	for _, r := range h.callbackRoutes() {
		matched := cb.data == r.prefix
		if !r.exact && !matched {
			matched = strings.HasPrefix(cb.data, r.prefix)
		}
		if !matched {
			continue
		}
		if r.operator && !h.isOperator(cb.chatID) {
			notice = "⛔ Доступ запрещён"
			return
		}
		notice = r.handle(ctx, cb, strings.TrimPrefix(cb.data, r.prefix))
		return
	}
	logger.L().Debug("unknown callback", zap.String("data", cb.data), zap.Int64("chat_id", cb.chatID))
}

func (h *BotHandler) chatState(ctx context.Context, chatID int64) (repository.ChatState, bool) {
	st, ok, err := h.states.Get(ctx, chatID)
	if err != nil {
		logger.L().Warn("chat state read failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return repository.ChatState{}, false
	}
	return st, ok
}

func (h *BotHandler) setState(ctx context.Context, chatID int64, st repository.ChatState) {
	if err := h.states.Set(ctx, chatID, st); err != nil {
		logger.L().Warn("chat state write failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *BotHandler) clearState(ctx context.Context, chatID int64) {
	if err := h.states.Delete(ctx, chatID); err != nil {
		logger.L().Warn("chat state delete failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// reply sends the user-facing notice for err; unexpected errors are logged.
func (h *BotHandler) reply(chatID int64, op string, err error) {
	if !isDomainError(err) {
		logger.L().Error("handler failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
	}
	_, _ = h.out.send(chatID, userNotice(err), nil)
}

// notice is the callback flavour of reply.
func (h *BotHandler) notice(chatID int64, op string, err error) string {
	if !isDomainError(err) {
		logger.L().Error("callback failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return plainNotice(userNotice(err))
}

var errEmptyInput = errors.New("empty input")
