package repository

import (
	"context"
	"time"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

// UserRepository foydalanuvchi profillari
type UserRepository interface {
	EnsureUser(ctx context.Context, telegramID int64) error
	GetUser(ctx context.Context, telegramID int64) (entity.User, error)
	SetUserField(ctx context.Context, telegramID int64, field entity.ProfileField, value string) error
	SaveUser(ctx context.Context, user entity.User) error
	ListUsers(ctx context.Context) ([]entity.User, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)
}

// GarageRepository keeps the "one primary car per user" invariant.
type GarageRepository interface {
	ListCars(ctx context.Context, userID int64) ([]entity.Car, error)
	// AddCar clears the primary flag on existing cars and stores the new one as primary.
	AddCar(ctx context.Context, car entity.Car) (entity.Car, error)
	RemoveCar(ctx context.Context, userID, carID int64) error
	SetPrimaryCar(ctx context.Context, userID, carID int64) error
	ClearGarage(ctx context.Context, userID int64) error
	CountGarages(ctx context.Context) (int, error)
}

// OrderRepository is the single authoritative order store.
type OrderRepository interface {
	GetOrder(ctx context.Context, id string) (entity.Order, error)
	// UpsertOrder replaces the item list atomically when items are given.
	UpsertOrder(ctx context.Context, order entity.Order) error
	// InsertOrder fails with entity.ErrDuplicate when the id is taken.
	InsertOrder(ctx context.Context, order entity.Order) error
	// UpdateOrderStatus and UpdateOrderTracking write only while the order is
	// still in status `from`; otherwise entity.ErrOrderChanged.
	UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, at time.Time) error
	UpdateOrderTracking(ctx context.Context, id, number, carrier string, from, to entity.OrderStatus, at time.Time) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, limit int) ([]entity.Order, error)
	ListOrdersByCustomer(ctx context.Context, telegramID int64) ([]entity.Order, error)
	CountOrders(ctx context.Context) (int, error)
	CountOrdersByStatus(ctx context.Context, status entity.OrderStatus) (int, error)
}

// SupportRepository support sessiyalari va xabarlari
type SupportRepository interface {
	// CreateSession closes any open session of the user and stores the opening question.
	CreateSession(ctx context.Context, userID int64, snap entity.SupportSnapshot, at time.Time) (entity.SupportSession, error)
	GetSession(ctx context.Context, id int64) (entity.SupportSession, error)
	OpenSessionByUser(ctx context.Context, userID int64) (entity.SupportSession, bool, error)
	ListSessionsByStatus(ctx context.Context, status entity.SessionStatus) ([]entity.SupportSession, error)
	// CompareAndSetStatus moves a session from one status to another; false when it was not in `from`.
	CompareAndSetStatus(ctx context.Context, id int64, from, to entity.SessionStatus, operatorID int64, at time.Time) (bool, error)
	// CloseSession closes a waiting or active session; false when already closed.
	CloseSession(ctx context.Context, id int64, at time.Time) (bool, error)
	AddMessage(ctx context.Context, msg entity.SupportMessage) error
	// ListMessages returns the newest `limit` messages in chronological order.
	ListMessages(ctx context.Context, sessionID int64, limit int) ([]entity.SupportMessage, error)
	CountMessages(ctx context.Context, sessionID int64) (int, error)
}

// SettingsRepository key/value sozlamalar
type SettingsRepository interface {
	GetSetting(ctx context.Context, key, fallback string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// EventRepository remembers consumed integration events.
type EventRepository interface {
	// MarkEventProcessed returns false if the event was already recorded.
	MarkEventProcessed(ctx context.Context, eventID string, at time.Time) (bool, error)
}
