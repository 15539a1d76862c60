package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

const (
	defaultPollTimeout = 30
	defaultRetryDelay  = 5 * time.Second
)

// BotAPI is the subset of *tgbotapi.BotAPI the bot uses. Tests pass a fake.
type BotAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Deps collaborators of the bot handler
type Deps struct {
	Support  usecase.SupportUseCase
	Orders   usecase.OrderUseCase
	Profiles usecase.ProfileUseCase
	Pricing  usecase.PricingUseCase
	States   repository.StateRepository
	Events   repository.EventRepository

	Operators      []int64
	WebAppURL      string
	SupportContact string
	PollTimeout    int
	RetryDelay     time.Duration
	Clock          usecase.Clock
	// Location is used for dates shown to operators; time.Local when nil.
	Location *time.Location
}

// BotHandler Telegram bot handler
type BotHandler struct {
	bot      BotAPI
	out      *sender
	support  usecase.SupportUseCase
	orders   usecase.OrderUseCase
	profiles usecase.ProfileUseCase
	pricing  usecase.PricingUseCase
	states   repository.StateRepository
	events   repository.EventRepository

	operators      map[int64]struct{}
	operatorIDs    []int64
	webAppURL      string
	supportContact string
	pollTimeout    int
	retryDelay     time.Duration
	now            usecase.Clock
	loc            *time.Location
}

// NewBotHandler yangi bot handler yaratish
func NewBotHandler(bot BotAPI, d Deps) *BotHandler {
	h := &BotHandler{
		bot:            bot,
		out:            &sender{bot: bot},
		support:        d.Support,
		orders:         d.Orders,
		profiles:       d.Profiles,
		pricing:        d.Pricing,
		states:         d.States,
		events:         d.Events,
		operators:      make(map[int64]struct{}, len(d.Operators)),
		operatorIDs:    append([]int64(nil), d.Operators...),
		webAppURL:      d.WebAppURL,
		supportContact: d.SupportContact,
		pollTimeout:    d.PollTimeout,
		retryDelay:     d.RetryDelay,
		now:            d.Clock,
		loc:            d.Location,
	}
	for _, id := range d.Operators {
		h.operators[id] = struct{}{}
	}
	if h.pollTimeout <= 0 {
		h.pollTimeout = defaultPollTimeout
	}
	if h.retryDelay <= 0 {
		h.retryDelay = defaultRetryDelay
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.supportContact == "" {
		h.supportContact = "@CMOLEHCK"
	}
	return h
}

func (h *BotHandler) isOperator(chatID int64) bool {
	_, ok := h.operators[chatID]
	return ok
}
