package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

func TestValidateField(t *testing.T) {
	tests := []struct {
		name    string
		field   entity.ProfileField
		input   string
		want    string
		wantErr bool
	}{
		{"full name", entity.FieldName, "  Иван Петров ", "Иван Петров", false},
		{"single word", entity.FieldName, "Иван", "", true},
		{"digits in name", entity.FieldName, "Иван 2", "", true},
		{"plus seven", entity.FieldPhone, "+7 (999) 123-45-67", "+7 (999) 123-45-67", false},
		{"eight compact", entity.FieldPhone, "89991234567", "89991234567", false},
		{"short phone", entity.FieldPhone, "12345", "", true},
		{"region case", entity.FieldRegion, "московская область", "Московская область", false},
		{"unknown region", entity.FieldRegion, "Марс", "", true},
		{"city numeric", entity.FieldCity, "123", "", true},
		{"city short", entity.FieldCity, "К", "", true},
		{"known city", entity.FieldCity, "казань", "Казань", false},
		{"unknown city kept", entity.FieldCity, "Верхние Пупки", "Верхние Пупки", false},
		{"address", entity.FieldAddress, "ул. Ленина, 5", "ул. Ленина, 5", false},
		{"empty address", entity.FieldAddress, " ", "", true},
		{"email", entity.FieldEmail, "ivan@example.com", "ivan@example.com", false},
		{"bad email", entity.FieldEmail, "ivan@", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateField(tt.field, tt.input)
			if tt.wantErr {
				_, ok := entity.AsValidation(err)
				assert.True(t, ok, "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestRegionSuggestions(t *testing.T) {
	_, err := ValidateField(entity.FieldRegion, "Москов")
	ve, ok := entity.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "Московская область")

	assert.LessOrEqual(t, len(SuggestRegions("область")), 5)
	assert.Equal(t, []string{"Новосибирск", "Новокузнецк", "Новороссийск"}, SuggestCities("Ново", 3))
}

func TestCityHint(t *testing.T) {
	res, err := ValidateField(entity.FieldCity, "Сарат")
	require.NoError(t, err)
	assert.Equal(t, "Сарат", res.Value)
	assert.Contains(t, res.Hint, "Саратов")
}

func TestValidateCar(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateCar(entity.Car{Brand: "Lada", Model: "Vesta", Year: 2020}, now))
	assert.NoError(t, ValidateCar(entity.Car{Brand: "Kia", Model: "Rio"}, now))
	assert.Error(t, ValidateCar(entity.Car{Brand: "L", Model: "Vesta"}, now))
	assert.Error(t, ValidateCar(entity.Car{Brand: "Lada", Model: ""}, now))
	assert.Error(t, ValidateCar(entity.Car{Brand: "Lada", Model: "Vesta", Year: 1900}, now))
	assert.Error(t, ValidateCar(entity.Car{Brand: "Lada", Model: "Vesta", Year: 2030}, now))
	assert.Error(t, ValidateCar(entity.Car{Brand: "Lada<b>", Model: "Vesta"}, now))
}

func TestProfileSetFieldAndSave(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	uc := NewProfileUseCase(st, st, newFakeClock().Now)

	value, _, err := uc.SetField(ctx, customerID, entity.FieldRegion, "татарстан")
	require.Error(t, err)
	assert.Empty(t, value)

	value, _, err = uc.SetField(ctx, customerID, entity.FieldRegion, "республика татарстан")
	require.NoError(t, err)
	assert.Equal(t, "Республика Татарстан", value)

	saved, err := uc.Save(ctx, entity.User{TelegramID: customerID, Name: "Иван Петров", Phone: "+79991234567"})
	require.NoError(t, err)
	assert.Equal(t, "Республика Татарстан", saved.Region)

	_, err = uc.Save(ctx, entity.User{TelegramID: customerID, Phone: "555"})
	require.Error(t, err)

	u, err := uc.Get(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", u.Name)
	assert.Equal(t, "+79991234567", u.Phone)

	ids, err := uc.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{customerID}, ids)
}

func TestProfileGarage(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	uc := NewProfileUseCase(st, st, newFakeClock().Now)

	first, err := uc.AddCar(ctx, entity.Car{UserID: customerID, Brand: "Lada", Model: "Vesta", Year: 2020})
	require.NoError(t, err)
	second, err := uc.AddCar(ctx, entity.Car{UserID: customerID, Brand: "Kia", Model: "Rio", Year: 2018})
	require.NoError(t, err)

	cars, err := uc.Cars(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cars, 2)
	assert.Equal(t, second.ID, cars[0].ID)
	assert.True(t, cars[0].IsPrimary)

	require.NoError(t, uc.SetPrimary(ctx, customerID, first.ID))
	cars, err = uc.Cars(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cars[0].ID)

	require.NoError(t, uc.RemoveCar(ctx, customerID, first.ID))
	cars, err = uc.Cars(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.True(t, cars[0].IsPrimary)

	require.NoError(t, uc.ClearGarage(ctx, customerID))
	cars, err = uc.Cars(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, cars)

	_, err = uc.AddCar(ctx, entity.Car{UserID: customerID, Brand: "X", Model: "Y"})
	require.Error(t, err)
}
