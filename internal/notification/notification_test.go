package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{4500, "4 500"},
		{1234567, "1 234 567"},
		{-1500, "-1 500"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAmount(tc.in))
	}
	assert.Equal(t, "4 500 ₽", FormatRub(4500))
}

func TestNewOrderAlertParsesBack(t *testing.T) {
	order := entity.Order{
		ID:         "CT2602-ABC12",
		TelegramID: 555,
		Customer: entity.Customer{
			Name:    "Иван Петров",
			Phone:   "+7 999 123-45-67",
			Region:  "Московская область",
			City:    "Химки",
			Address: "ул. Ленина, 5 <кв 3>",
		},
		Comment: "Позвонить заранее",
		Items: []entity.OrderItem{
			{Name: "Фильтр масляный", Brand: "Mann", Price: 1500, Quantity: 2},
			{Name: "Свеча зажигания", Brand: "NGK", Price: 1500, Quantity: 1},
		},
		Total: 4500,
	}
	text := NewOrderAlert(order)
	assert.Contains(t, text, "Новый заказ #CT2602-ABC12")
	assert.Contains(t, text, "&lt;кв 3&gt;")

	now := time.Now()
	got, ok := ParseNewOrderAlert(text, now)
	require.True(t, ok)
	assert.Equal(t, "CT2602-ABC12", got.ID)
	assert.Equal(t, entity.OrderPending, got.Status)
	assert.Equal(t, int64(4500), got.Total)
	assert.Equal(t, int64(555), got.TelegramID)
	assert.Equal(t, "Иван Петров", got.Customer.Name)
	assert.Equal(t, "Химки", got.Customer.City)
	assert.Equal(t, "ул. Ленина, 5 <кв 3>", got.Customer.Address)
	assert.Equal(t, "Позвонить заранее", got.Comment)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Фильтр масляный", got.Items[0].Name)
	assert.Equal(t, "Mann", got.Items[0].Brand)
	assert.Equal(t, int64(1500), got.Items[0].Price)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestParseNewOrderAlertIgnoresOtherText(t *testing.T) {
	_, ok := ParseNewOrderAlert("Привет! Где мой заказ?", time.Now())
	assert.False(t, ok)

	got, ok := ParseNewOrderAlert("🛒 Новый заказ #CT2602-XYZ99\n🆔 Telegram: N/A", time.Now())
	require.True(t, ok)
	assert.Zero(t, got.TelegramID)
	assert.Empty(t, got.Items)
}

func TestOrderStatusChanged(t *testing.T) {
	o := entity.Order{ID: "CT1", Status: entity.OrderDelivered, TrackingNumber: "EMS1"}
	msg := OrderStatusChanged(o)
	assert.Contains(t, msg, "Доставлен")
	assert.Contains(t, msg, "EMS1")
	assert.Contains(t, msg, "Спасибо за покупку")

	o.Status = entity.OrderCancelled
	msg = OrderStatusChanged(o)
	assert.Contains(t, msg, "отменён")
	assert.NotContains(t, msg, "EMS1")

	o.Status = entity.OrderShipped
	o.TrackingCarrier = "СДЭК"
	shipped := OrderShipped(o)
	assert.Contains(t, shipped, "EMS1")
	assert.Contains(t, shipped, "СДЭК")
	assert.Contains(t, shipped, "track24.ru/?code=EMS1")
}
