package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

func TestApplyMarkup(t *testing.T) {
	tests := []struct {
		base int64
		pct  int
		want int64
	}{
		{1000, 0, 1000},
		{1000, 15, 1150},
		{999, 10, 1099},
		{1005, 10, 1106},
		{1, 50, 2},
		{250, 500, 1500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ApplyMarkup(tt.base, tt.pct), "base=%d pct=%d", tt.base, tt.pct)
	}
}

func TestPricingMarkupSettings(t *testing.T) {
	ctx := context.Background()
	uc := NewPricingUseCase(newStore(t))

	pct, err := uc.Markup(ctx)
	require.NoError(t, err)
	assert.Zero(t, pct)

	err = uc.SetMarkup(ctx, 501)
	_, ok := entity.AsValidation(err)
	require.True(t, ok)
	require.Error(t, uc.SetMarkup(ctx, -1))

	require.NoError(t, uc.SetMarkup(ctx, 20))
	price, err := uc.Apply(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), price)

	q, err := uc.Quote(ctx, []QuoteLine{
		{Name: "Колодки", Base: 1000, Quantity: 2},
		{Name: "Фильтр", Base: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, q.MarkupPercent)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, int64(2400), q.Lines[0].Subtotal)
	assert.Equal(t, 1, q.Lines[1].Quantity)
	assert.Equal(t, int64(3000), q.Total)
}
