package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
)

func TestHandleOrderPlacedAlertsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := events.NewOrderPlaced(entity.Order{
		ID:         "CT2503-ZZZZZ",
		Status:     entity.OrderPending,
		Customer:   entity.Customer{Name: "Иван", Phone: "+79990000000", Address: "ул. Ленина, 1"},
		Items:      []entity.OrderItem{{Name: "Фильтр", Brand: "Mann", Price: 700, Quantity: 2}},
		Total:      1400,
		TelegramID: customerID,
	}, time.Now())

	require.NoError(t, env.handler.HandleOrderPlaced(ctx, ev))
	require.NoError(t, env.handler.HandleOrderPlaced(ctx, ev))

	alerts := env.bot.to(operatorID)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].text, "Новый заказ #CT2503-ZZZZZ")
	assert.Contains(t, alerts[0].text, "1 400 ₽")
	assert.Equal(t, []string{"adm_order_CT2503-ZZZZZ"}, alerts[0].callbacks())
	assert.Empty(t, env.bot.to(customerID))
}

func TestHandleOrderPlacedSatisfiesHandler(t *testing.T) {
	env := newTestEnv(t)
	var handle events.Handler = env.handler.HandleOrderPlaced
	assert.NotNil(t, handle)
}
