package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/pkg/logger"
)

const botDescription = "🚗 CarTech — магазин автозапчастей.\n\n" +
	"Оригинальные и аналоговые запчасти для любого авто: " +
	"Toyota, BMW, Hyundai, Geely, Chery, LADA и других.\n\n" +
	"✅ Подбор по марке и модели\n" +
	"✅ Отслеживание заказов\n" +
	"✅ Доставка по всей России\n\n" +
	"Поддержка: %s"

const botShortDescription = "🚗 CarTech — запчасти для любого авто. Подбор, заказ, доставка по РФ."

var customerCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Главное меню"},
	{Command: "mycar", Description: "Мой гараж — выбор авто"},
	{Command: "profile", Description: "Мой профиль"},
	{Command: "orders", Description: "Мои заказы"},
	{Command: "track", Description: "Отследить посылку"},
	{Command: "support", Description: "💬 Связь с менеджером"},
	{Command: "endchat", Description: "Завершить диалог"},
	{Command: "menu", Description: "Главное меню"},
	{Command: "help", Description: "Помощь"},
}

var operatorCommands = []tgbotapi.BotCommand{
	{Command: "admin", Description: "🔐 Админ-панель"},
	{Command: "aorders", Description: "📦 Заказы (админ)"},
	{Command: "ausers", Description: "👥 Пользователи (админ)"},
	{Command: "aexport", Description: "📊 Выгрузка заказов"},
}

// Setup bot profilini sozlaydi. Failures are logged and do not stop the bot.
func (h *BotHandler) Setup() {
	desc := tgbotapi.Params{}
	desc.AddNonEmpty("description", fmt.Sprintf(botDescription, h.supportContact))
	h.call("setMyDescription", desc)

	short := tgbotapi.Params{}
	short.AddNonEmpty("short_description", botShortDescription)
	h.call("setMyShortDescription", short)

	h.setMenuButton(0)
	if _, err := h.bot.Request(tgbotapi.NewSetMyCommands(customerCommands...)); err != nil {
		logger.L().Warn("setMyCommands failed", zap.Error(err))
	}

	all := append(append([]tgbotapi.BotCommand{}, customerCommands...), operatorCommands...)
	for _, op := range h.operatorIDs {
		h.setMenuButton(op)
		cfg := tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(op), all...)
		if _, err := h.bot.Request(cfg); err != nil {
			logger.L().Warn("setMyCommands for operator failed", zap.Int64("chat_id", op), zap.Error(err))
		}
	}
	logger.L().Info("bot profile configured", zap.Int("operators", len(h.operatorIDs)))
}

// setMenuButton forces the commands menu; chatID 0 sets the default.
func (h *BotHandler) setMenuButton(chatID int64) {
	p := tgbotapi.Params{}
	p.AddNonZero64("chat_id", chatID)
	if err := p.AddInterface("menu_button", map[string]string{"type": "commands"}); err != nil {
		logger.L().Warn("menu button params", zap.Error(err))
		return
	}
	h.call("setChatMenuButton", p)
}

func (h *BotHandler) call(endpoint string, p tgbotapi.Params) {
	if _, err := h.bot.MakeRequest(endpoint, p); err != nil {
		logger.L().Warn("bot api call failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}
