package entity

import (
	"strconv"
	"time"
)

// User is created lazily on first contact and never deleted.
type User struct {
	TelegramID int64     `json:"telegram_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Region     string    `json:"region"`
	City       string    `json:"city"`
	Address    string    `json:"address"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileField names a user column editable through setters.
type ProfileField string

const (
	FieldName    ProfileField = "name"
	FieldPhone   ProfileField = "phone"
	FieldRegion  ProfileField = "region"
	FieldCity    ProfileField = "city"
	FieldAddress ProfileField = "address"
	FieldEmail   ProfileField = "email"
)

func (f ProfileField) Valid() bool {
	switch f {
	case FieldName, FieldPhone, FieldRegion, FieldCity, FieldAddress, FieldEmail:
		return true
	}
	return false
}

func (f ProfileField) Label() string {
	switch f {
	case FieldName:
		return "Имя"
	case FieldPhone:
		return "Телефон"
	case FieldRegion:
		return "Регион"
	case FieldCity:
		return "Населённый пункт"
	case FieldAddress:
		return "Адрес"
	case FieldEmail:
		return "Email"
	}
	return string(f)
}

// Car is one garage entry. At most one car per user is primary.
type Car struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Brand     string    `json:"brand"`
	BrandID   string    `json:"brand_id"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Engine    string    `json:"engine"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// Label "Toyota Camry 2018" ko'rinishida
func (c Car) Label() string {
	s := c.Brand + " " + c.Model
	if c.Year > 0 {
		s += " " + strconv.Itoa(c.Year)
	}
	return s
}
