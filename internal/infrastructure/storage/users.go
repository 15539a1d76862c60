package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

type userRow struct {
	TelegramID int64  `db:"telegram_id"`
	Name       string `db:"name"`
	Phone      string `db:"phone"`
	Region     string `db:"region"`
	City       string `db:"city"`
	Address    string `db:"address"`
	Email      string `db:"email"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

func (r userRow) toEntity() entity.User {
	return entity.User{
		TelegramID: r.TelegramID,
		Name:       r.Name,
		Phone:      r.Phone,
		Region:     r.Region,
		City:       r.City,
		Address:    r.Address,
		Email:      r.Email,
		CreatedAt:  fromMillis(r.CreatedAt),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}
}

const userColumns = `telegram_id, name, phone, region, city, address, email, created_at, updated_at`

// EnsureUser birinchi murojaatda foydalanuvchini yaratadi
func (s *SQLStore) EnsureUser(ctx context.Context, telegramID int64) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (telegram_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (telegram_id) DO NOTHING`), telegramID, now, now)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", telegramID, err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, telegramID int64) (entity.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`), telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.User{}, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	return row.toEntity(), nil
}

// SetUserField bitta profil maydonini yangilaydi. Column nomi whitelist orqali.
func (s *SQLStore) SetUserField(ctx context.Context, telegramID int64, field entity.ProfileField, value string) error {
	if !field.Valid() {
		return fmt.Errorf("unknown profile field %q", field)
	}
	if err := s.EnsureUser(ctx, telegramID); err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE telegram_id = ?`, string(field))
	if _, err := s.db.ExecContext(ctx, s.q(query), value, time.Now().UnixMilli(), telegramID); err != nil {
		return fmt.Errorf("set user %s: %w", field, err)
	}
	return nil
}

// SaveUser upserts every profile field at once.
func (s *SQLStore) SaveUser(ctx context.Context, u entity.User) error {
	now := time.Now()
	created := u.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			region = excluded.region,
			city = excluded.city,
			address = excluded.address,
			email = excluded.email,
			updated_at = excluded.updated_at`),
		u.TelegramID, u.Name, u.Phone, u.Region, u.City, u.Address, u.Email,
		toMillis(created), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("save user %d: %w", u.TelegramID, err)
	}
	return nil
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]entity.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]entity.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

// ListUserIDs broadcast uchun
func (s *SQLStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT telegram_id FROM users ORDER BY telegram_id`); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
