package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/cartech-bot/internal/domain/constants"
	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

var (
	phoneRe       = regexp.MustCompile(`^(\+7|8)\s*\(?\d{3}\)?\s*\d{3}[\s-]?\d{2}[\s-]?\d{2}$`)
	phoneDigitsRe = regexp.MustCompile(`^[78]\d{10}$`)
	phoneStripRe  = regexp.MustCompile(`[\s()\-+]`)
	nameRe        = regexp.MustCompile(`^[A-Za-zА-Яа-яЁёÀ-ÿ'\-]+(\s+[A-Za-zА-Яа-яЁёÀ-ÿ'\-]+)+$`)
	digitRe       = regexp.MustCompile(`\d`)
	onlyDigitsRe  = regexp.MustCompile(`^\d+$`)
	carTextRe     = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё0-9\s\-/.]+$`)
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared instance with the shop's custom tags:
// ru_phone, full_name, ru_region.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("ru_phone", func(fl validator.FieldLevel) bool {
			return IsRussianPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("full_name", func(fl validator.FieldLevel) bool {
			return nameRe.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = v.RegisterValidation("ru_region", func(fl validator.FieldLevel) bool {
			_, ok := MatchRegion(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// IsRussianPhone accepts +7/8 formats with optional separators.
func IsRussianPhone(raw string) bool {
	raw = strings.TrimSpace(raw)
	if phoneRe.MatchString(raw) {
		return true
	}
	return phoneDigitsRe.MatchString(phoneStripRe.ReplaceAllString(raw, ""))
}

// MatchRegion returns the canonical spelling of a known region.
func MatchRegion(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, r := range Regions {
		if strings.ToLower(r) == lower {
			return r, true
		}
	}
	return "", false
}

// SuggestRegions substring bo'yicha 5 tagacha variant
func SuggestRegions(raw string) []string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return nil
	}
	var out []string
	for _, r := range Regions {
		if strings.Contains(strings.ToLower(r), lower) {
			out = append(out, r)
			if len(out) == 5 {
				break
			}
		}
	}
	return out
}

func matchCity(raw string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range Cities {
		if strings.ToLower(c) == lower {
			return c, true
		}
	}
	return "", false
}

// SuggestCities prefix bo'yicha `limit` tagacha variant
func SuggestCities(raw string, limit int) []string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return nil
	}
	var out []string
	for _, c := range Cities {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// FieldResult is the normalized value plus an optional non-blocking hint.
type FieldResult struct {
	Value string
	Hint  string
}

// ValidateField checks one profile field and returns its canonical value.
func ValidateField(field entity.ProfileField, raw string) (FieldResult, error) {
	value := strings.TrimSpace(raw)
	fail := func(msg string) (FieldResult, error) {
		return FieldResult{}, entity.NewValidationError(string(field), msg)
	}

	switch field {
	case entity.FieldName:
		if value == "" {
			return fail("Укажите имя и фамилию")
		}
		if digitRe.MatchString(value) {
			return fail("Имя не должно содержать цифры")
		}
		if Validator().Var(value, "full_name") != nil {
			return fail("Введите имя и фамилию (2 слова минимум)")
		}
	case entity.FieldPhone:
		if Validator().Var(value, "ru_phone") != nil {
			return fail("Некорректный номер. Формат: <code>+7 9XX XXX-XX-XX</code>")
		}
	case entity.FieldRegion:
		if value == "" {
			return fail("Укажите регион")
		}
		canonical, ok := MatchRegion(value)
		if !ok {
			if s := SuggestRegions(value); len(s) > 0 {
				lines := make([]string, len(s))
				for i, r := range s {
					lines[i] = "• <b>" + r + "</b>"
				}
				return fail("Регион не найден. Может быть:\n" + strings.Join(lines, "\n") + "\n\nВведите точное название из списка.")
			}
			return fail("Регион не найден. Пример: <code>/setregion Московская область</code>")
		}
		value = canonical
	case entity.FieldCity:
		if value == "" {
			return fail("Укажите населённый пункт")
		}
		if onlyDigitsRe.MatchString(value) {
			return fail("Введите название, а не число")
		}
		if len([]rune(value)) < 2 {
			return fail("Слишком короткое название")
		}
		if canonical, ok := matchCity(value); ok {
			return FieldResult{Value: canonical}, nil
		}
		res := FieldResult{Value: value}
		if s := SuggestCities(value, 3); len(s) > 0 {
			res.Hint = "💡 Возможно, вы имели в виду: <b>" + strings.Join(s, "</b>, <b>") + "</b>?"
		}
		return res, nil
	case entity.FieldAddress:
		if value == "" {
			return fail("Укажите адрес доставки")
		}
	case entity.FieldEmail:
		if value != "" && Validator().Var(value, "email") != nil {
			return fail("Некорректный email")
		}
	default:
		return fail("неизвестное поле")
	}
	return FieldResult{Value: value}, nil
}

// ValidateCar checks a garage entry; year 0 means "not specified".
func ValidateCar(car entity.Car, now time.Time) error {
	brand := strings.TrimSpace(car.Brand)
	model := strings.TrimSpace(car.Model)
	switch {
	case len([]rune(brand)) < 2:
		return entity.NewValidationError("brand", "Слишком короткое название марки")
	case !carTextRe.MatchString(brand):
		return entity.NewValidationError("brand", "Недопустимые символы в марке")
	case model == "":
		return entity.NewValidationError("model", "Введите модель")
	case !carTextRe.MatchString(model):
		return entity.NewValidationError("model", "Недопустимые символы в модели")
	}
	if car.Year != 0 && (car.Year < constants.MinCarYear || car.Year > now.Year()+1) {
		return entity.NewValidationError("year", fmt.Sprintf("Год должен быть от %d до %d", constants.MinCarYear, now.Year()+1))
	}
	return nil
}
