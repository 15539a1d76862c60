package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in        string
		cmd, args string
	}{
		{"/start", "start", ""},
		{"/setname@CarTechBot Иван Петров", "setname", "Иван Петров"},
		{"/TRACK   EMS123 ", "track", "EMS123"},
		{"/astatus\nCT2503-ABCDE shipped", "astatus", "CT2503-ABCDE shipped"},
		{"привет", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, args := splitCommand(tt.in)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestClassify(t *testing.T) {
	group := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -5, Type: "group"}, Text: "/start"}}
	assert.IsType(t, ignoredUpdate{}, classify(group))

	sticker := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5, Type: "private"}}}
	assert.IsType(t, ignoredUpdate{}, classify(sticker))

	inline := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "1", Data: "x"}}
	assert.IsType(t, ignoredUpdate{}, classify(inline))

	msg := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5, Type: "private"}, Text: " /help "}}
	got, ok := classify(msg).(textUpdate)
	require.True(t, ok)
	assert.Equal(t, "help", got.command)
	assert.Equal(t, int64(5), got.chatID)
}

func TestStartShowsAdminButtonOnlyToOperators(t *testing.T) {
	env := newTestEnv(t)

	env.text(customerID, "/start")
	msg := env.bot.last(t, customerID)
	assert.Contains(t, msg.text, "Добро пожаловать в CarTech, Иван!")
	assert.NotContains(t, msg.callbacks(), "adm_back")
	assert.Contains(t, msg.callbacks(), "garage_start")

	env.text(operatorID, "меню")
	assert.Contains(t, env.bot.last(t, operatorID).callbacks(), "adm_back")
}

func TestOperatorCommandsRequireOperator(t *testing.T) {
	env := newTestEnv(t)

	env.text(customerID, "/admin")
	assert.Equal(t, "⛔ Доступ запрещён.", env.bot.last(t, customerID).text)

	env.tap(customerID, "adm_orders")
	require.NotEmpty(t, env.bot.answers)
	assert.Equal(t, "⛔ Доступ запрещён", env.bot.answers[len(env.bot.answers)-1].Text)
}

// Scenario A: question, queued message, accept, relay both ways, close.
func TestSupportAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.text(customerID, "/support")
	env.text(customerID, "Нужна деталь")

	sess, ok, err := env.support.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entity.SessionWaiting, sess.Status)
	sid := strconv.FormatInt(sess.ID, 10)

	alert := env.bot.last(t, operatorID)
	assert.Contains(t, alert.text, "Нужна деталь")
	assert.Contains(t, alert.text, "📋 В очереди: 1")
	assert.Contains(t, alert.callbacks(), "sup_accept_"+sid)

	before := len(env.bot.to(operatorID))
	env.text(customerID, "Артикул 123")
	assert.Len(t, env.bot.to(operatorID), before, "waiting messages are not relayed")

	env.tap(operatorID, "sup_queue")
	queue := env.bot.last(t, operatorID)
	assert.Contains(t, queue.text, "Ожидают ответа")
	assert.Contains(t, queue.callbacks(), "sup_accept_"+sid)

	env.tap(operatorID, "sup_accept_"+sid)
	opened := env.bot.last(t, operatorID)
	assert.True(t, opened.edit)
	assert.Contains(t, opened.text, "Накопленные сообщения")
	assert.Contains(t, opened.text, "Артикул 123")
	assert.True(t, env.bot.contains(customerID, "Менеджер подключился"))

	env.text(customerID, "Спасибо")
	assert.Equal(t, "👤 <b>Иван:</b>\nСпасибо", env.bot.last(t, operatorID).text)

	env.text(operatorID, "Здравствуйте <скоро>")
	assert.Equal(t, "👨‍💼 <b>Менеджер:</b>\nЗдравствуйте &lt;скоро&gt;", env.bot.last(t, customerID).text)

	env.text(operatorID, "/endchat")
	assert.Contains(t, env.bot.last(t, customerID).text, "Чат завершён менеджером")
	got, err := env.support.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionClosed, got.Status)

	_, bound, err := env.handler.states.Get(ctx, operatorID)
	require.NoError(t, err)
	assert.False(t, bound)
}

func TestSupportSecondAcceptIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.text(customerID, "/support")
	env.text(customerID, "Вопрос")
	sess, _, err := env.support.GetActiveOrWaiting(context.Background(), customerID)
	require.NoError(t, err)
	sid := strconv.FormatInt(sess.ID, 10)

	env.tap(operatorID, "sup_accept_"+sid)
	env.tap(operatorID, "sup_accept_"+sid)
	assert.Equal(t, "ℹ️ Вы уже в диалоге с этим пользователем.", env.bot.last(t, operatorID).text)
}

// Only the accepting operator talks to the customer.
func TestSupportChatStaysWithAcceptingOperator(t *testing.T) {
	env := newTestEnvWithOperators(t, operatorID, secondOperatorID)
	ctx := context.Background()
	env.text(customerID, "/support")
	env.text(customerID, "Вопрос")
	sess, _, err := env.support.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)
	sid := strconv.FormatInt(sess.ID, 10)
	env.tap(operatorID, "sup_accept_"+sid)

	env.tap(secondOperatorID, "sup_chat_"+sid)
	assert.Equal(t, takenByOtherText, env.bot.last(t, secondOperatorID).text)
	_, bound, err := env.handler.states.Get(ctx, secondOperatorID)
	require.NoError(t, err)
	assert.False(t, bound)

	// eskirgan bog'lanish ham mijozga yetib bormaydi
	require.NoError(t, env.handler.states.Set(ctx, secondOperatorID, repository.ChatState{
		Action:       repository.ActionSupportChat,
		SessionID:    sess.ID,
		TargetUserID: customerID,
	}))
	env.text(secondOperatorID, "Я тоже тут")
	assert.False(t, env.bot.contains(customerID, "Я тоже тут"))
	assert.Equal(t, takenByOtherText, env.bot.last(t, secondOperatorID).text)
	_, bound, err = env.handler.states.Get(ctx, secondOperatorID)
	require.NoError(t, err)
	assert.False(t, bound)

	env.text(customerID, "Спасибо")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Спасибо")
	assert.False(t, env.bot.contains(secondOperatorID, "Спасибо"))

	env.text(operatorID, "Чем помочь?")
	assert.Contains(t, env.bot.last(t, customerID).text, "Чем помочь?")
}

func TestAcceptShowsLongQueueInFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.text(customerID, "/support")
	env.text(customerID, "Первый вопрос")
	for i := 0; i < 60; i++ {
		env.text(customerID, fmt.Sprintf("msg-%d %s", i, strings.Repeat("x", 80)))
	}
	sess, _, err := env.support.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)

	before := len(env.bot.to(operatorID))
	env.tap(operatorID, "sup_accept_"+strconv.FormatInt(sess.ID, 10))

	var view strings.Builder
	for _, o := range env.bot.to(operatorID)[before:] {
		view.WriteString(o.text)
	}
	assert.Contains(t, view.String(), "Первый вопрос")
	assert.Contains(t, view.String(), "msg-0 ")
	assert.Contains(t, view.String(), "msg-59 ")
	for _, o := range env.bot.to(operatorID)[before:] {
		assert.LessOrEqual(t, len([]rune(o.text)), constants.MessageLimit)
	}
}

// Scenario D: rejected session leaves the queue.
func TestSupportReject(t *testing.T) {
	env := newTestEnv(t)
	env.text(customerID, "/support")
	env.text(customerID, "Где мой заказ?")
	sess, _, err := env.support.GetActiveOrWaiting(context.Background(), customerID)
	require.NoError(t, err)

	env.tap(operatorID, "sup_reject_"+strconv.FormatInt(sess.ID, 10))
	assert.Contains(t, env.bot.last(t, customerID).text, "Запрос отклонён")
	assert.Contains(t, env.bot.last(t, customerID).text, "@CMOLEHCK")

	env.tap(operatorID, "sup_queue")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Нет активных или ожидающих запросов.")
}

func TestCustomerEndChatNotifiesOperator(t *testing.T) {
	env := newTestEnv(t)
	env.text(customerID, "/support")
	env.text(customerID, "Вопрос")
	sess, _, err := env.support.GetActiveOrWaiting(context.Background(), customerID)
	require.NoError(t, err)
	env.tap(operatorID, "sup_accept_"+strconv.FormatInt(sess.ID, 10))

	env.text(customerID, "/endchat")
	assert.Contains(t, env.bot.last(t, customerID).text, "Чат завершён.")
	assert.Contains(t, env.bot.last(t, operatorID).text, "завершил чат")

	env.text(operatorID, "ещё тут?")
	assert.False(t, env.bot.contains(customerID, "ещё тут?"))

	env.text(customerID, "/endchat")
	assert.Equal(t, "ℹ️ Нет активного диалога с поддержкой.", env.bot.last(t, customerID).text)
}

func TestRelayToClosedSessionWarnsOperator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.text(customerID, "/support")
	env.text(customerID, "Вопрос")
	sess, _, err := env.support.GetActiveOrWaiting(ctx, customerID)
	require.NoError(t, err)
	env.tap(operatorID, "sup_accept_"+strconv.FormatInt(sess.ID, 10))

	_, err = env.support.Close(ctx, sess.ID, entity.RoleCustomer)
	require.NoError(t, err)

	env.text(operatorID, "Алло")
	assert.Equal(t, "⚠️ Сессия не активна. Диалог уже завершён.", env.bot.last(t, operatorID).text)
}

// Scenario C through the admin command.
func TestAdminTrackCommandShipsOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order, err := env.orders.Create(ctx, usecase.CreateOrderInput{
		TelegramID: customerID,
		Customer:   entity.Customer{Name: "Иван Петров", Phone: "+79991234567", Address: "ул. Ленина, 1"},
		Items:      []entity.OrderItem{{Name: "Колодки", Brand: "Brembo", Price: 4500, Quantity: 1}},
	})
	require.NoError(t, err)

	env.text(operatorID, "/atrack "+order.ID+" EMS123 СДЭК")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Клиент уведомлён.")
	assert.Contains(t, env.bot.last(t, customerID).text, "EMS123")
	assert.Contains(t, env.bot.last(t, customerID).text, "СДЭК")

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderShipped, got.Status)
	assert.Equal(t, "EMS123", got.TrackingNumber)
}

func TestAdminTrackWizard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order, err := env.orders.Create(ctx, usecase.CreateOrderInput{
		TelegramID: customerID,
		Items:      []entity.OrderItem{{Name: "Фильтр", Price: 700, Quantity: 2}},
	})
	require.NoError(t, err)

	env.tap(operatorID, "adm_addtrack_"+order.ID)
	st, ok, err := env.handler.states.Get(ctx, operatorID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, repository.ActionAdminAwaitTracking, st.Action)

	env.text(operatorID, "RA123456789RU")
	confirm := env.bot.last(t, operatorID)
	assert.Contains(t, confirm.text, "Не указана")
	assert.Contains(t, confirm.text, "Статус: Отправлен")

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderShipped, got.Status)
}

func TestAdminSetStatusCallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order, err := env.orders.Create(ctx, usecase.CreateOrderInput{
		TelegramID: customerID,
		Items:      []entity.OrderItem{{Name: "Свеча", Price: 300, Quantity: 4}},
	})
	require.NoError(t, err)

	env.tap(operatorID, "adm_setstatus_"+order.ID+"_confirmed")
	card := env.bot.last(t, operatorID)
	assert.Contains(t, card.text, "Статус: <b>Подтверждён</b>")
	assert.Contains(t, env.bot.last(t, customerID).text, "Статус обновлён: <b>Подтверждён</b>")

	env.tap(operatorID, "adm_setstatus_"+order.ID+"_pending")
	assert.Equal(t, "⚠️ Статус нельзя вернуть на предыдущий этап.", env.bot.answers[len(env.bot.answers)-1].Text)
}

func TestAdminStatusUnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	env.text(operatorID, "/astatus CT0000-XXXXX shipped")
	assert.Equal(t, "❌ Заказ #CT0000-XXXXX не найден.", env.bot.last(t, operatorID).text)

	env.text(operatorID, "/astatus CT0000-XXXXX lost")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Некорректный статус")
}

func TestLegacyAlertImport(t *testing.T) {
	env := newTestEnv(t)
	alert := "🛒 <b>Новый заказ #CT2503-AB12C</b>\n\n👤 Иван\n📱 +79990000000\n📍 Москва\n\n" +
		"📦 <b>Товары:</b>\n  • Колодки (Brembo) × 2 = 3 000 ₽\n\n💰 <b>Итого: 3 000 ₽</b>\n🆔 Telegram: 100"

	env.text(operatorID, alert)
	msg := env.bot.last(t, operatorID)
	assert.Contains(t, msg.text, "зарегистрирован")
	assert.Contains(t, msg.callbacks(), "adm_order_CT2503-AB12C")

	got, err := env.orders.Get(context.Background(), "CT2503-AB12C")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.Total)

	before := len(env.bot.to(operatorID))
	env.text(operatorID, alert)
	assert.Len(t, env.bot.to(operatorID), before, "duplicate alert is ignored")
}

func TestProfileSetters(t *testing.T) {
	env := newTestEnv(t)

	env.text(customerID, "/setphone 123")
	assert.Contains(t, env.bot.last(t, customerID).text, "Некорректный номер")

	env.text(customerID, "/setphone +7 999 123-45-67")
	assert.Contains(t, env.bot.last(t, customerID).text, "✅ Телефон обновлено")

	env.text(customerID, "/setcity Ново")
	assert.Contains(t, env.bot.last(t, customerID).text, "Возможно, вы имели в виду")

	env.text(customerID, "/setname")
	assert.Equal(t, "Укажите значение: <code>/setname значение</code>", env.bot.last(t, customerID).text)

	env.text(customerID, "/profile")
	assert.Contains(t, env.bot.last(t, customerID).text, "+7 999 123-45-67")
}

func TestGarageWizard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.tap(customerID, "garage_start")
	env.tap(customerID, "brand_toyota")
	assert.Contains(t, env.bot.last(t, customerID).callbacks(), "model_toyota_Land Cruiser")

	env.tap(customerID, "model_toyota_Land Cruiser")
	years := env.bot.last(t, customerID)
	assert.Contains(t, years.callbacks(), "year_2025")
	assert.Contains(t, years.callbacks(), "year_2010")
	assert.NotContains(t, years.callbacks(), "year_2009")

	env.tap(customerID, "year_custom")
	env.text(customerID, "1901")
	assert.Contains(t, env.bot.last(t, customerID).text, "Укажите корректный год (1950–2026)")
	env.text(customerID, "2008")
	env.tap(customerID, "engine_custom")
	env.text(customerID, "4.5 V8")
	assert.Contains(t, env.bot.last(t, customerID).text, "Авто добавлено в гараж")

	cars, err := env.profiles.Cars(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "Toyota", cars[0].Brand)
	assert.Equal(t, "Land Cruiser", cars[0].Model)
	assert.Equal(t, 2008, cars[0].Year)
	assert.Equal(t, "4.5 V8", cars[0].Engine)
	assert.True(t, cars[0].IsPrimary)

	_, ok, err := env.handler.states.Get(ctx, customerID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCustomBrandWizard(t *testing.T) {
	env := newTestEnv(t)

	env.tap(customerID, "brand_custom")
	env.text(customerID, "Haval")
	env.text(customerID, "Jolion")
	env.tap(customerID, "year_2022")
	env.tap(customerID, "engine_1.6L")

	cars, err := env.profiles.Cars(context.Background(), customerID)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "custom_haval", cars[0].BrandID)
	assert.Equal(t, "1.6L", cars[0].Engine)
}

func TestOrdersListShowsCancelWindow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.Create(context.Background(), usecase.CreateOrderInput{
		TelegramID: customerID,
		Items:      []entity.OrderItem{{Name: "Масло", Price: 4500, Quantity: 1}},
	})
	require.NoError(t, err)

	env.text(customerID, "/orders")
	assert.Contains(t, env.bot.last(t, customerID).text, "4 500 ₽")
	assert.Contains(t, env.bot.last(t, customerID).text, "Отмена возможна ещё 90 сек.")
}

func TestBroadcastCountsFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []int64{101, 102, operatorID} {
		_, err := env.profiles.Get(ctx, id)
		require.NoError(t, err)
	}
	env.bot.failChats[102] = true

	env.text(operatorID, "/abroadcast Скидки <10%>")
	assert.Equal(t, "📢 <b>CarTech</b>\n\nСкидки &lt;10%&gt;", env.bot.last(t, 101).text)
	assert.Contains(t, env.bot.last(t, operatorID).text, "Отправлено: <b>1</b>")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Ошибок: <b>1</b>")
}

func TestMarkupCommand(t *testing.T) {
	env := newTestEnv(t)

	env.text(operatorID, "/amarkup 15")
	assert.Equal(t, "✅ Наценка установлена: <b>15%</b>", env.bot.last(t, operatorID).text)

	env.text(operatorID, "/amarkup 900")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Наценка должна быть от 0 до 500%")

	env.text(operatorID, "/amarkup")
	assert.Contains(t, env.bot.last(t, operatorID).text, "Текущая наценка: <b>15%</b>")
}

func TestHandlerRecoversFromPanic(t *testing.T) {
	env := newTestEnv(t)
	env.handler.support = nil

	assert.NotPanics(t, func() { env.text(customerID, "/support") })
}

func TestSetupConfiguresProfile(t *testing.T) {
	env := newTestEnv(t)
	env.handler.Setup()

	assert.Contains(t, env.bot.endpoints, "setMyDescription")
	assert.Contains(t, env.bot.endpoints, "setMyShortDescription")
	assert.Contains(t, env.bot.endpoints, "setChatMenuButton")
	assert.Len(t, env.bot.requests, 2)
}
