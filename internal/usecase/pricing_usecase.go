package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// QuoteLine is one priced position.
type QuoteLine struct {
	Name     string `json:"name"`
	Base     int64  `json:"base"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Subtotal int64  `json:"subtotal"`
}

// Quote umumiy narx hisobi
type Quote struct {
	MarkupPercent int         `json:"markup_percent"`
	Lines         []QuoteLine `json:"lines"`
	Total         int64       `json:"total"`
}

// PricingUseCase global ustama (markup) bilan ishlaydi
type PricingUseCase interface {
	Markup(ctx context.Context) (int, error)
	SetMarkup(ctx context.Context, percent int) error
	// Apply returns round(base * (1 + markup/100)) in whole rubles.
	Apply(ctx context.Context, base int64) (int64, error)
	Quote(ctx context.Context, lines []QuoteLine) (Quote, error)
}

type pricingUseCase struct {
	settings repository.SettingsRepository
}

// NewPricingUseCase yangi PricingUseCase
func NewPricingUseCase(settings repository.SettingsRepository) PricingUseCase {
	return &pricingUseCase{settings: settings}
}

func (u *pricingUseCase) Markup(ctx context.Context) (int, error) {
	raw, err := u.settings.GetSetting(ctx, constants.SettingMarkup, "0")
	if err != nil {
		return 0, fmt.Errorf("get markup: %w", err)
	}
	pct, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.L().Warn("stored markup is not a number", zap.String("value", raw))
		return 0, nil
	}
	return pct, nil
}

func (u *pricingUseCase) SetMarkup(ctx context.Context, percent int) error {
	if percent < 0 || percent > constants.MaxMarkupPercent {
		return entity.NewValidationError("markup", fmt.Sprintf("Наценка должна быть от 0 до %d%%", constants.MaxMarkupPercent))
	}
	if err := u.settings.SetSetting(ctx, constants.SettingMarkup, strconv.Itoa(percent)); err != nil {
		return fmt.Errorf("set markup: %w", err)
	}
	logger.L().Info("markup updated", zap.Int("percent", percent))
	return nil
}

func (u *pricingUseCase) Apply(ctx context.Context, base int64) (int64, error) {
	pct, err := u.Markup(ctx)
	if err != nil {
		return 0, err
	}
	return ApplyMarkup(base, pct), nil
}

func (u *pricingUseCase) Quote(ctx context.Context, lines []QuoteLine) (Quote, error) {
	pct, err := u.Markup(ctx)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{MarkupPercent: pct, Lines: make([]QuoteLine, 0, len(lines))}
	for _, l := range lines {
		if l.Base < 0 {
			return Quote{}, entity.NewValidationError("price", "Цена не может быть отрицательной")
		}
		if l.Quantity <= 0 {
			l.Quantity = 1
		}
		l.Price = ApplyMarkup(l.Base, pct)
		l.Subtotal = l.Price * int64(l.Quantity)
		q.Total += l.Subtotal
		q.Lines = append(q.Lines, l)
	}
	return q, nil
}

// ApplyMarkup half-away-from-zero rounding, 1000 @ 15% = 1150
func ApplyMarkup(base int64, percent int) int64 {
	factor := decimal.NewFromInt(100 + int64(percent)).Div(decimal.NewFromInt(100))
	return decimal.NewFromInt(base).Mul(factor).Round(0).IntPart()
}
