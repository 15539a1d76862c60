package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

type carRow struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	Brand     string `db:"brand"`
	BrandID   string `db:"brand_id"`
	Model     string `db:"model"`
	Year      int    `db:"year"`
	Engine    string `db:"engine"`
	IsPrimary bool   `db:"is_primary"`
	CreatedAt int64  `db:"created_at"`
}

func (r carRow) toEntity() entity.Car {
	return entity.Car{
		ID:        r.ID,
		UserID:    r.UserID,
		Brand:     r.Brand,
		BrandID:   r.BrandID,
		Model:     r.Model,
		Year:      r.Year,
		Engine:    r.Engine,
		IsPrimary: r.IsPrimary,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

// ListCars asosiy mashina birinchi, keyin eng yangilari
func (s *SQLStore) ListCars(ctx context.Context, userID int64) ([]entity.Car, error) {
	var rows []carRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT id, user_id, brand, brand_id, model, year, engine, is_primary, created_at
		FROM garages WHERE user_id = ?
		ORDER BY is_primary DESC, created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	cars := make([]entity.Car, 0, len(rows))
	for _, r := range rows {
		cars = append(cars, r.toEntity())
	}
	return cars, nil
}

// AddCar clears the old primary and inserts the new car as primary in one transaction.
func (s *SQLStore) AddCar(ctx context.Context, car entity.Car) (entity.Car, error) {
	if err := s.EnsureUser(ctx, car.UserID); err != nil {
		return entity.Car{}, err
	}
	if car.CreatedAt.IsZero() {
		car.CreatedAt = time.Now()
	}
	car.IsPrimary = true

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE garages SET is_primary = ? WHERE user_id = ?`), false, car.UserID); err != nil {
			return err
		}
		return tx.GetContext(ctx, &car.ID, s.q(`
			INSERT INTO garages (user_id, brand, brand_id, model, year, engine, is_primary, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			car.UserID, car.Brand, car.BrandID, car.Model, car.Year, car.Engine, true, toMillis(car.CreatedAt))
	})
	if err != nil {
		return entity.Car{}, fmt.Errorf("add car: %w", err)
	}
	return car, nil
}

// RemoveCar deletes one car; if it was primary the newest remaining car takes over.
func (s *SQLStore) RemoveCar(ctx context.Context, userID, carID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM garages WHERE id = ? AND user_id = ?`), carID, userID)
		if err != nil {
			return fmt.Errorf("remove car: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return entity.ErrNotFound
		}
		return s.electPrimary(ctx, tx, userID)
	})
}

func (s *SQLStore) electPrimary(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	var primaries int
	if err := tx.GetContext(ctx, &primaries, s.q(`SELECT COUNT(*) FROM garages WHERE user_id = ? AND is_primary = ?`), userID, true); err != nil {
		return err
	}
	if primaries > 0 {
		return nil
	}
	var newest []int64
	if err := tx.SelectContext(ctx, &newest, s.q(`
		SELECT id FROM garages WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`), userID); err != nil {
		return err
	}
	if len(newest) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, s.q(`UPDATE garages SET is_primary = ? WHERE id = ?`), true, newest[0])
	return err
}

func (s *SQLStore) SetPrimaryCar(ctx context.Context, userID, carID int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, s.q(`SELECT COUNT(*) FROM garages WHERE id = ? AND user_id = ?`), carID, userID); err != nil {
			return err
		}
		if exists == 0 {
			return entity.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE garages SET is_primary = ? WHERE user_id = ?`), false, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`UPDATE garages SET is_primary = ? WHERE id = ?`), true, carID)
		return err
	})
}

// ClearGarage garajni to'liq tozalash
func (s *SQLStore) ClearGarage(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM garages WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("clear garage: %w", err)
	}
	return nil
}

// CountGarages counts users owning at least one car.
func (s *SQLStore) CountGarages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(DISTINCT user_id) FROM garages`); err != nil {
		return 0, fmt.Errorf("count garages: %w", err)
	}
	return n, nil
}
