package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/notification"
)

type carBrand struct {
	id   string
	name string
}

var carBrands = []carBrand{
	{"toyota", "Toyota"}, {"nissan", "Nissan"}, {"hyundai", "Hyundai"},
	{"kia", "KIA"}, {"volkswagen", "Volkswagen"}, {"bmw", "BMW"},
	{"mercedes", "Mercedes"}, {"audi", "Audi"}, {"lada", "LADA"},
	{"ford", "Ford"}, {"chevrolet", "Chevrolet"}, {"renault", "Renault"},
	{"mazda", "Mazda"}, {"honda", "Honda"}, {"mitsubishi", "Mitsubishi"},
	{"skoda", "Škoda"}, {"geely", "Geely"}, {"chery", "Chery"},
	{"byd", "BYD"},
}

var carModels = map[string][]string{
	"toyota":     {"Camry", "Corolla", "RAV4", "Land Cruiser", "Hilux"},
	"nissan":     {"X-Trail", "Qashqai", "Almera", "Teana"},
	"hyundai":    {"Solaris", "Creta", "Tucson", "Santa Fe"},
	"kia":        {"Rio", "Ceed", "Sportage", "Sorento"},
	"volkswagen": {"Polo", "Golf", "Tiguan", "Passat"},
	"bmw":        {"3 серия", "5 серия", "X3", "X5"},
	"mercedes":   {"C-класс", "E-класс", "GLC", "GLE"},
	"audi":       {"A3", "A4", "Q5", "Q7"},
	"lada":       {"Vesta", "Granta", "Niva Travel", "Largus"},
	"ford":       {"Focus", "Kuga", "Mondeo"},
	"chevrolet":  {"Cruze", "Niva", "Captiva"},
	"renault":    {"Duster", "Logan", "Kaptur"},
	"mazda":      {"Mazda 3", "CX-5", "Mazda 6"},
	"honda":      {"Civic", "CR-V", "Accord"},
	"mitsubishi": {"Outlander", "ASX", "Lancer", "Pajero Sport"},
	"skoda":      {"Octavia", "Rapid", "Kodiaq"},
	"geely":      {"Coolray", "Atlas", "Monjaro"},
	"chery":      {"Tiggo 7 Pro", "Tiggo 4", "Tiggo 8 Pro"},
	"byd":        {"Song Plus", "Han", "Seal"},
}

var engines = []string{"1.4L", "1.6L", "1.8L", "2.0L", "2.0L Turbo", "2.5L", "3.0L", "Diesel", "EV/Hybrid"}

const yearsShown = 15

func brandName(id string) (string, bool) {
	for _, b := range carBrands {
		if b.id == id {
			return b.name, true
		}
	}
	return "", false
}

func backToBrands() *tgbotapi.InlineKeyboardMarkup {
	return keyboard(row(button("← Назад к маркам", "garage_start")))
}

func (h *BotHandler) cbGarageStart(ctx context.Context, cb callbackUpdate, _ string) string {
	h.clearState(ctx, cb.chatID)
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(carBrands); i += 3 {
		end := min(i+3, len(carBrands))
		var r []tgbotapi.InlineKeyboardButton
		for _, b := range carBrands[i:end] {
			r = append(r, button(b.name, "brand_"+b.id))
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(button("✏️ Ввести марку вручную", "brand_custom")))
	h.out.edit(cb.chatID, cb.messageID,
		"🚗 <b>Выберите марку авто:</b>\n\nНет вашей марки? Нажмите «Ввести вручную» внизу ⬇️",
		keyboard(rows...))
	return ""
}

func (h *BotHandler) cbGarageView(ctx context.Context, cb callbackUpdate, _ string) string {
	h.handleMyCar(ctx, cb.chatID, 0)
	return ""
}

func (h *BotHandler) cbGarageClear(ctx context.Context, cb callbackUpdate, _ string) string {
	if err := h.profiles.ClearGarage(ctx, cb.chatID); err != nil {
		return h.notice(cb.chatID, "garage_clear", err)
	}
	h.handleMyCar(ctx, cb.chatID, cb.messageID)
	return "🗑 Гараж очищен"
}

func (h *BotHandler) cbBrandCustom(ctx context.Context, cb callbackUpdate, _ string) string {
	h.setState(ctx, cb.chatID, repository.ChatState{Action: repository.ActionAwaitCustomBrand})
	h.out.edit(cb.chatID, cb.messageID,
		"✏️ <b>Введите название марки</b>\n\nНапишите марку вашего авто текстом, например:\n"+
			"<code>Haval</code>\n<code>Exeed</code>\n<code>FAW</code>\n<code>Tank</code>",
		backToBrands())
	return ""
}

func (h *BotHandler) cbBrand(ctx context.Context, cb callbackUpdate, brandID string) string {
	name, ok := brandName(brandID)
	if !ok {
		return "Марка не найдена"
	}
	h.setState(ctx, cb.chatID, repository.ChatState{
		Action:    repository.ActionSelectingCar,
		BrandID:   brandID,
		BrandName: name,
	})
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range carModels[brandID] {
		rows = append(rows, row(button(m, "model_"+brandID+"_"+m)))
	}
	rows = append(rows,
		row(button("✏️ Ввести модель вручную", "model_custom_"+brandID)),
		row(button("← Назад к маркам", "garage_start")))
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("🚗 <b>%s</b>\nВыберите модель:\n\nНет нужной? Нажмите «Ввести вручную»", notification.Escape(name)),
		keyboard(rows...))
	return ""
}

func (h *BotHandler) cbModelCustom(ctx context.Context, cb callbackUpdate, brandID string) string {
	st, _ := h.chatState(ctx, cb.chatID)
	st.Action = repository.ActionAwaitCustomModel
	st.BrandID = brandID
	if name, ok := brandName(brandID); ok {
		st.BrandName = name
	}
	if st.BrandName == "" {
		st.BrandName = brandID
	}
	h.setState(ctx, cb.chatID, st)
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("🚗 <b>%s</b>\n\n✏️ <b>Введите название модели</b>\nНапишите модель текстом, например:\n<code>Camry</code>\n<code>Solaris</code>",
			notification.Escape(st.BrandName)),
		backToBrands())
	return ""
}

func (h *BotHandler) cbModel(ctx context.Context, cb callbackUpdate, arg string) string {
	brandID, model, ok := strings.Cut(arg, "_")
	if !ok || model == "" {
		return ""
	}
	st, _ := h.chatState(ctx, cb.chatID)
	if st.BrandID != brandID || st.BrandName == "" {
		name, _ := brandName(brandID)
		st = repository.ChatState{BrandID: brandID, BrandName: name}
	}
	st.Action = repository.ActionSelectingYear
	st.Model = model
	h.setState(ctx, cb.chatID, st)
	h.out.edit(cb.chatID, cb.messageID, h.yearPrompt(st), h.yearKeyboard(row(button("← Назад", "brand_"+brandID))))
	return ""
}

func (h *BotHandler) yearPrompt(st repository.ChatState) string {
	return fmt.Sprintf("🚗 <b>%s %s</b>\nВыберите год выпуска:\n\nНет нужного? Нажмите «Ввести вручную»",
		notification.Escape(st.BrandName), notification.Escape(st.Model))
}

// yearKeyboard joriy yildan 15 yil orqaga, qatorda 4 ta
func (h *BotHandler) yearKeyboard(back []tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	cur := h.now().Year()
	var rows [][]tgbotapi.InlineKeyboardButton
	for y := cur; y >= cur-yearsShown; y -= 4 {
		var r []tgbotapi.InlineKeyboardButton
		for j := 0; j < 4 && y-j >= cur-yearsShown; j++ {
			r = append(r, button(strconv.Itoa(y-j), "year_"+strconv.Itoa(y-j)))
		}
		rows = append(rows, r)
	}
	rows = append(rows, row(button("✏️ Ввести год вручную", "year_custom")), back)
	return keyboard(rows...)
}

func (h *BotHandler) cbYearCustom(ctx context.Context, cb callbackUpdate, _ string) string {
	st, _ := h.chatState(ctx, cb.chatID)
	st.Action = repository.ActionAwaitCustomYear
	h.setState(ctx, cb.chatID, st)
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("🚗 <b>%s %s</b>\n\n✏️ <b>Введите год выпуска</b>\nНапишите год числом, например:\n<code>2003</code>\n<code>1998</code>\n<code>2019</code>",
			notification.Escape(st.BrandName), notification.Escape(st.Model)),
		backToBrands())
	return ""
}

func (h *BotHandler) cbYear(ctx context.Context, cb callbackUpdate, arg string) string {
	year, err := strconv.Atoi(arg)
	if err != nil {
		return ""
	}
	h.selectYear(ctx, cb.chatID, cb.messageID, year)
	return ""
}

func (h *BotHandler) selectYear(ctx context.Context, chatID int64, messageID, year int) {
	st, _ := h.chatState(ctx, chatID)
	st.Action = repository.ActionSelectingCar
	st.Year = year
	h.setState(ctx, chatID, st)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range engines {
		rows = append(rows, row(button(e, "engine_"+e)))
	}
	rows = append(rows, row(button("✏️ Ввести вручную", "engine_custom")))
	h.out.edit(chatID, messageID,
		fmt.Sprintf("🚗 <b>%s %s %d</b>\nВыберите двигатель:", notification.Escape(st.BrandName), notification.Escape(st.Model), year),
		keyboard(rows...))
}

func (h *BotHandler) cbEngineCustom(ctx context.Context, cb callbackUpdate, _ string) string {
	st, _ := h.chatState(ctx, cb.chatID)
	st.Action = repository.ActionAwaitCustomEngine
	h.setState(ctx, cb.chatID, st)
	h.out.edit(cb.chatID, cb.messageID,
		fmt.Sprintf("🚗 <b>%s %s %d</b>\n\n✏️ <b>Введите объём / тип двигателя</b>\nНапример:\n<code>1.5T</code>\n<code>2.0 TFSI</code>\n<code>Diesel 2.2</code>",
			notification.Escape(st.BrandName), notification.Escape(st.Model), st.Year),
		backToBrands())
	return ""
}

func (h *BotHandler) cbEngine(ctx context.Context, cb callbackUpdate, engine string) string {
	st, _ := h.chatState(ctx, cb.chatID)
	h.saveCar(ctx, cb.chatID, cb.messageID, st, engine)
	return ""
}

func (h *BotHandler) handleCustomBrandText(ctx context.Context, chatID int64, text string) {
	name := strings.TrimSpace(text)
	if len([]rune(name)) < 2 {
		_, _ = h.out.send(chatID, "⚠️ Слишком короткое название марки", backToBrands())
		return
	}
	h.setState(ctx, chatID, repository.ChatState{
		Action:        repository.ActionAwaitCustomModel,
		BrandID:       "custom_" + strings.Join(strings.Fields(strings.ToLower(name)), ""),
		BrandName:     name,
		IsCustomBrand: true,
	})
	_, _ = h.out.send(chatID,
		fmt.Sprintf("✅ Марка: <b>%s</b>\n\n✏️ <b>Теперь введите модель</b>\nНапишите модель вашего авто, например:\n<code>Jolion</code>\n<code>VX</code>\n<code>F7</code>",
			notification.Escape(name)),
		backToBrands())
}

func (h *BotHandler) handleCustomModelText(ctx context.Context, chatID int64, st repository.ChatState, text string) {
	st.Model = strings.TrimSpace(text)
	st.Action = repository.ActionSelectingYear
	h.setState(ctx, chatID, st)
	_, _ = h.out.send(chatID, h.yearPrompt(st), h.yearKeyboard(row(button("← Назад к маркам", "garage_start"))))
}

func (h *BotHandler) handleCustomYearText(ctx context.Context, chatID int64, _ repository.ChatState, text string) {
	maxYear := h.now().Year() + 1
	year, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || year < constants.MinCarYear || year > maxYear {
		_, _ = h.out.send(chatID, fmt.Sprintf("⚠️ Укажите корректный год (%d–%d)", constants.MinCarYear, maxYear), nil)
		return
	}
	h.selectYear(ctx, chatID, 0, year)
}

// saveCar finishes the wizard; the new car becomes the primary one.
func (h *BotHandler) saveCar(ctx context.Context, chatID int64, messageID int, st repository.ChatState, engine string) {
	if st.BrandName == "" || st.Model == "" {
		h.clearState(ctx, chatID)
		_, _ = h.out.send(chatID, "⚠️ Выбор авто устарел. Начните заново: /mycar", nil)
		return
	}
	car, err := h.profiles.AddCar(ctx, entity.Car{
		UserID:  chatID,
		Brand:   st.BrandName,
		BrandID: st.BrandID,
		Model:   st.Model,
		Year:    st.Year,
		Engine:  strings.TrimSpace(engine),
	})
	if err != nil {
		h.reply(chatID, "add_car", err)
		return
	}
	h.clearState(ctx, chatID)

	var b strings.Builder
	b.WriteString("✅ <b>Авто добавлено в гараж!</b>\n\n")
	fmt.Fprintf(&b, "⭐ <b>%s %s</b>\n", notification.Escape(car.Brand), notification.Escape(car.Model))
	if car.Year > 0 {
		fmt.Fprintf(&b, "📅 %d\n", car.Year)
	}
	if car.Engine != "" {
		fmt.Fprintf(&b, "⚙️ %s\n", notification.Escape(car.Engine))
	}
	b.WriteString("\nТеперь в магазине вы увидите подходящие запчасти для вашего авто.")

	h.out.edit(chatID, messageID, b.String(), keyboard(
		h.shopRow("🛒 Подобрать запчасти", "?car="+url.QueryEscape(car.BrandID)),
		row(button("🚗 Мой гараж", "garage_view")),
	))
}
