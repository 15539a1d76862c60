package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

// ProfileUseCase profil va garaj operatsiyalari
type ProfileUseCase interface {
	// Get returns the profile, creating an empty one on first contact.
	Get(ctx context.Context, telegramID int64) (entity.User, error)
	// SetField validates and stores one field; the hint is non-blocking advice.
	SetField(ctx context.Context, telegramID int64, field entity.ProfileField, raw string) (value, hint string, err error)
	// Save validates every non-empty field and stores them together.
	Save(ctx context.Context, user entity.User) (entity.User, error)
	Cars(ctx context.Context, telegramID int64) ([]entity.Car, error)
	AddCar(ctx context.Context, car entity.Car) (entity.Car, error)
	RemoveCar(ctx context.Context, telegramID, carID int64) error
	SetPrimary(ctx context.Context, telegramID, carID int64) error
	ClearGarage(ctx context.Context, telegramID int64) error
	ListUsers(ctx context.Context) ([]entity.User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type profileUseCase struct {
	users  repository.UserRepository
	garage repository.GarageRepository
	now    Clock
}

// NewProfileUseCase yangi ProfileUseCase
func NewProfileUseCase(users repository.UserRepository, garage repository.GarageRepository, clock Clock) ProfileUseCase {
	return &profileUseCase{users: users, garage: garage, now: clockOrDefault(clock)}
}

func (u *profileUseCase) Get(ctx context.Context, telegramID int64) (entity.User, error) {
	if err := u.users.EnsureUser(ctx, telegramID); err != nil {
		return entity.User{}, err
	}
	return u.users.GetUser(ctx, telegramID)
}

func (u *profileUseCase) SetField(ctx context.Context, telegramID int64, field entity.ProfileField, raw string) (string, string, error) {
	if !field.Valid() {
		return "", "", entity.NewValidationError(string(field), "неизвестное поле")
	}
	res, err := ValidateField(field, raw)
	if err != nil {
		return "", "", err
	}
	if err := u.users.EnsureUser(ctx, telegramID); err != nil {
		return "", "", err
	}
	if err := u.users.SetUserField(ctx, telegramID, field, res.Value); err != nil {
		return "", "", fmt.Errorf("set %s: %w", field, err)
	}
	logger.L().Debug("profile field updated",
		zap.Int64("telegram_id", telegramID),
		zap.String("field", string(field)),
	)
	return res.Value, res.Hint, nil
}

func (u *profileUseCase) Save(ctx context.Context, user entity.User) (entity.User, error) {
	current, err := u.Get(ctx, user.TelegramID)
	if err != nil {
		return entity.User{}, err
	}

	fields := []struct {
		field entity.ProfileField
		src   string
		dst   *string
	}{
		{entity.FieldName, user.Name, &current.Name},
		{entity.FieldPhone, user.Phone, &current.Phone},
		{entity.FieldRegion, user.Region, &current.Region},
		{entity.FieldCity, user.City, &current.City},
		{entity.FieldAddress, user.Address, &current.Address},
		{entity.FieldEmail, user.Email, &current.Email},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.src) == "" {
			continue
		}
		res, err := ValidateField(f.field, f.src)
		if err != nil {
			return entity.User{}, err
		}
		*f.dst = res.Value
	}

	current.UpdatedAt = u.now()
	if err := u.users.SaveUser(ctx, current); err != nil {
		return entity.User{}, fmt.Errorf("save profile: %w", err)
	}
	return current, nil
}

func (u *profileUseCase) Cars(ctx context.Context, telegramID int64) ([]entity.Car, error) {
	return u.garage.ListCars(ctx, telegramID)
}

func (u *profileUseCase) AddCar(ctx context.Context, car entity.Car) (entity.Car, error) {
	car.Brand = strings.TrimSpace(car.Brand)
	car.Model = strings.TrimSpace(car.Model)
	car.Engine = strings.TrimSpace(car.Engine)
	if err := ValidateCar(car, u.now()); err != nil {
		return entity.Car{}, err
	}
	if err := u.users.EnsureUser(ctx, car.UserID); err != nil {
		return entity.Car{}, err
	}
	if car.CreatedAt.IsZero() {
		car.CreatedAt = u.now()
	}
	saved, err := u.garage.AddCar(ctx, car)
	if err != nil {
		return entity.Car{}, fmt.Errorf("add car: %w", err)
	}
	logger.L().Info("car added",
		zap.Int64("telegram_id", car.UserID),
		zap.String("car", saved.Label()),
	)
	return saved, nil
}

func (u *profileUseCase) RemoveCar(ctx context.Context, telegramID, carID int64) error {
	return u.garage.RemoveCar(ctx, telegramID, carID)
}

func (u *profileUseCase) SetPrimary(ctx context.Context, telegramID, carID int64) error {
	return u.garage.SetPrimaryCar(ctx, telegramID, carID)
}

func (u *profileUseCase) ClearGarage(ctx context.Context, telegramID int64) error {
	return u.garage.ClearGarage(ctx, telegramID)
}

func (u *profileUseCase) ListUsers(ctx context.Context) ([]entity.User, error) {
	return u.users.ListUsers(ctx)
}

func (u *profileUseCase) ListUserIDs(ctx context.Context) ([]int64, error) {
	return u.users.ListUserIDs(ctx)
}
