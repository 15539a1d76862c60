package telegram

import (
	"bytes"
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

func TestBuildOrdersWorkbook(t *testing.T) {
	created := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	orders := []entity.Order{
		{
			ID:         "CT2503-AAAAA",
			Status:     entity.OrderShipped,
			Customer:   entity.Customer{Name: "Иван Петров", Phone: "+79990000000", City: "Москва"},
			Total:      9000,
			TelegramID: 100,
			Items: []entity.OrderItem{
				{Name: "Колодки", Brand: "Brembo", PartNumber: "P123", Price: 4500, Quantity: 2},
			},
			TrackingNumber:  "EMS1",
			TrackingCarrier: "СДЭК",
			CreatedAt:       created,
			UpdatedAt:       created,
		},
		{ID: "CT2503-BBBBB", Status: entity.OrderPending, Total: 500, CreatedAt: created},
	}

	data, err := buildOrdersWorkbook(orders, time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "CT2503-AAAAA", rows[1][0])
	assert.Equal(t, "Отправлен", rows[1][1])
	assert.Equal(t, "9000", rows[1][8])
	assert.Equal(t, "СДЭК", rows[1][10])
	assert.Equal(t, "100", rows[1][11])
	assert.Equal(t, "2025-03-14 12:00:00", rows[1][12])
	assert.Equal(t, "Ожидает", rows[2][1])

	items, err := f.GetRows(itemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"CT2503-AAAAA", "Колодки", "Brembo", "P123", "4500", "2", "9000"}, items[1])
}

func TestAdminExportSendsDocument(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.Create(context.Background(), usecase.CreateOrderInput{
		TelegramID: customerID,
		Items:      []entity.OrderItem{{Name: "Масло", Price: 4500, Quantity: 1}},
	})
	require.NoError(t, err)

	env.text(operatorID, "/aexport")
	require.Len(t, env.bot.documents, 1)
	doc := env.bot.documents[0]
	assert.Equal(t, operatorID, doc.ChatID)
	assert.Equal(t, "📊 Выгрузка заказов: <b>1</b>", doc.Caption)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "orders-20250314-1200.xlsx", file.Name)
	assert.NotEmpty(t, file.Bytes)
}
