package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/infrastructure/storage"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

const (
	operatorID       int64 = 900
	secondOperatorID int64 = 901
	customerID       int64 = 100
)

// outbound is one recorded message or edit.
type outbound struct {
	chatID int64
	text   string
	markup *tgbotapi.InlineKeyboardMarkup
	edit   bool
}

func (o outbound) callbacks() []string {
	if o.markup == nil {
		return nil
	}
	var out []string
	for _, r := range o.markup.InlineKeyboard {
		for _, b := range r {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

type fakeBot struct {
	mu        sync.Mutex
	out       []outbound
	documents []tgbotapi.DocumentConfig
	answers   []tgbotapi.CallbackConfig
	endpoints []string
	requests  []tgbotapi.Chattable
	failChats map[int64]bool
	nextID    int
}

func newFakeBot() *fakeBot {
	return &fakeBot{failChats: map[int64]bool{}}
}

func (f *fakeBot) GetUpdates(tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	return nil, nil
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		if f.failChats[v.ChatID] {
			return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
		}
		o := outbound{chatID: v.ChatID, text: v.Text}
		if kb, ok := v.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			o.markup = &kb
		}
		f.out = append(f.out, o)
	case tgbotapi.DocumentConfig:
		f.documents = append(f.documents, v)
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := c.(type) {
	case tgbotapi.EditMessageTextConfig:
		f.out = append(f.out, outbound{chatID: v.ChatID, text: v.Text, markup: v.ReplyMarkup, edit: true})
	case tgbotapi.CallbackConfig:
		f.answers = append(f.answers, v)
	default:
		f.requests = append(f.requests, c)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) MakeRequest(endpoint string, _ tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints = append(f.endpoints, endpoint)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// to returns everything shown in chatID, oldest first.
func (f *fakeBot) to(chatID int64) []outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []outbound
	for _, o := range f.out {
		if o.chatID == chatID {
			res = append(res, o)
		}
	}
	return res
}

func (f *fakeBot) last(t *testing.T, chatID int64) outbound {
	t.Helper()
	msgs := f.to(chatID)
	require.NotEmpty(t, msgs, "nothing sent to %d", chatID)
	return msgs[len(msgs)-1]
}

func (f *fakeBot) contains(chatID int64, fragment string) bool {
	for _, o := range f.to(chatID) {
		if strings.Contains(o.text, fragment) {
			return true
		}
	}
	return false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	bot      *fakeBot
	handler  *BotHandler
	store    *storage.SQLStore
	clock    *fakeClock
	support  usecase.SupportUseCase
	orders   usecase.OrderUseCase
	profiles usecase.ProfileUseCase
	pricing  usecase.PricingUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithOperators(t, operatorID)
}

func newTestEnvWithOperators(t *testing.T, operators ...int64) *testEnv {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{
		bot:   newFakeBot(),
		store: st,
		clock: &fakeClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
	}
	env.support = usecase.NewSupportUseCase(st, st, st, env.clock.Now)
	env.orders = usecase.NewOrderUseCase(usecase.OrderUseCaseDeps{
		Orders:    st,
		Users:     st,
		Garage:    st,
		Notifier:  NewNotifier(env.bot),
		Operators: operators,
		Clock:     env.clock.Now,
	})
	env.profiles = usecase.NewProfileUseCase(st, st, env.clock.Now)
	env.pricing = usecase.NewPricingUseCase(st)
	env.handler = NewBotHandler(env.bot, Deps{
		Support:   env.support,
		Orders:    env.orders,
		Profiles:  env.profiles,
		Pricing:   env.pricing,
		States:    storage.NewMemoryStateRepository(),
		Events:    st,
		Operators: operators,
		WebAppURL: "https://shop.example/",
		Clock:     env.clock.Now,
		Location:  time.UTC,
	})
	return env
}

func user(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, FirstName: "Иван", UserName: "ivan"}
}

func (e *testEnv) text(chatID int64, text string) {
	e.handler.HandleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      user(chatID),
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	})
}

func (e *testEnv) tap(chatID int64, data string) {
	e.handler.HandleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + data,
			From: user(chatID),
			Message: &tgbotapi.Message{
				MessageID: 42,
				Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			},
			Data: data,
		},
	})
}
