package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

const (
	ordersSheet = "Заказы"
	itemsSheet  = "Товары"
)

var (
	orderHeaders = []any{"ID", "Статус", "Клиент", "Телефон", "Регион", "Нас. пункт", "Адрес",
		"Комментарий", "Сумма, ₽", "Трек", "Служба", "Telegram ID", "Создан", "Обновлён"}
	itemHeaders = []any{"Заказ", "Товар", "Бренд", "Артикул", "Цена, ₽", "Кол-во", "Сумма, ₽"}
)

// buildOrdersWorkbook writes one row per order plus an items sheet.
func buildOrdersWorkbook(orders []entity.Order, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.In(loc).Format("2006-01-02 15:04:05")
	}

	if err := writeRow(f, ordersSheet, 1, orderHeaders); err != nil {
		return nil, err
	}
	if err := writeRow(f, itemsSheet, 1, itemHeaders); err != nil {
		return nil, err
	}
	itemRow := 2
	for i, o := range orders {
		var tg any = ""
		if owner := o.Owner(); owner != 0 {
			tg = owner
		}
		values := []any{o.ID, o.Status.Label(), o.Customer.Name, o.Customer.Phone, o.Customer.Region,
			o.Customer.City, o.Customer.Address, o.Comment, o.Total, o.TrackingNumber, o.TrackingCarrier,
			tg, formatTime(o.CreatedAt), formatTime(o.UpdatedAt)}
		if err := writeRow(f, ordersSheet, i+2, values); err != nil {
			return nil, err
		}
		for _, it := range o.Items {
			values := []any{o.ID, it.Name, it.Brand, it.PartNumber, it.Price, it.Quantity, it.Subtotal()}
			if err := writeRow(f, itemsSheet, itemRow, values); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	for _, sheet := range []string{ordersSheet, itemsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", "N", 18); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowIdx int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func (h *BotHandler) adminExport(ctx context.Context, chatID int64) {
	orders, err := h.orders.ListRecent(ctx, 0)
	if err != nil {
		h.reply(chatID, "admin_export", err)
		return
	}
	data, err := buildOrdersWorkbook(orders, h.loc)
	if err != nil {
		h.reply(chatID, "admin_export", fmt.Errorf("build workbook: %w", err))
		return
	}
	name := "orders-" + h.now().In(h.loc).Format("20060102-1504") + ".xlsx"
	_ = h.out.document(chatID, name, data, fmt.Sprintf("📊 Выгрузка заказов: <b>%d</b>", len(orders)))
}

func (h *BotHandler) cbAdminExport(ctx context.Context, cb callbackUpdate, _ string) string {
	h.adminExport(ctx, cb.chatID)
	return "⏳ Готовлю файл…"
}
