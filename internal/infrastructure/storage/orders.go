package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

type orderRow struct {
	ID              string        `db:"id"`
	UserID          sql.NullInt64 `db:"user_id"`
	Status          string        `db:"status"`
	CustomerName    string        `db:"customer_name"`
	CustomerPhone   string        `db:"customer_phone"`
	CustomerRegion  string        `db:"customer_region"`
	CustomerCity    string        `db:"customer_city"`
	CustomerAddress string        `db:"customer_address"`
	Comment         string        `db:"comment"`
	Total           int64         `db:"total"`
	TrackingNumber  string        `db:"tracking_number"`
	TrackingCarrier string        `db:"tracking_carrier"`
	TelegramID      sql.NullInt64 `db:"telegram_id"`
	CreatedAt       int64         `db:"created_at"`
	UpdatedAt       int64         `db:"updated_at"`
}

type orderItemRow struct {
	ID         int64  `db:"id"`
	OrderID    string `db:"order_id"`
	ProductID  string `db:"product_id"`
	Name       string `db:"name"`
	Brand      string `db:"brand"`
	PartNumber string `db:"part_number"`
	Price      int64  `db:"price"`
	Quantity   int    `db:"quantity"`
}

func (r orderRow) toEntity() entity.Order {
	return entity.Order{
		ID:     r.ID,
		UserID: r.UserID.Int64,
		Status: entity.OrderStatus(r.Status),
		Customer: entity.Customer{
			Name:    r.CustomerName,
			Phone:   r.CustomerPhone,
			Region:  r.CustomerRegion,
			City:    r.CustomerCity,
			Address: r.CustomerAddress,
		},
		Comment:         r.Comment,
		Total:           r.Total,
		TrackingNumber:  r.TrackingNumber,
		TrackingCarrier: r.TrackingCarrier,
		TelegramID:      r.TelegramID.Int64,
		Items:           []entity.OrderItem{},
		CreatedAt:       fromMillis(r.CreatedAt),
		UpdatedAt:       fromMillis(r.UpdatedAt),
	}
}

func (r orderItemRow) toEntity() entity.OrderItem {
	return entity.OrderItem{
		ProductID:  r.ProductID,
		Name:       r.Name,
		Brand:      r.Brand,
		PartNumber: r.PartNumber,
		Price:      r.Price,
		Quantity:   r.Quantity,
	}
}

const orderColumns = `id, user_id, status, customer_name, customer_phone, customer_region, customer_city,
	customer_address, comment, total, tracking_number, tracking_carrier, telegram_id, created_at, updated_at`

const orderPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

func orderArgs(o entity.Order) []any {
	return []any{
		o.ID, nullID(o.UserID), string(o.Status),
		o.Customer.Name, o.Customer.Phone, o.Customer.Region, o.Customer.City, o.Customer.Address,
		o.Comment, o.Total, o.TrackingNumber, o.TrackingCarrier, nullID(o.TelegramID),
		toMillis(o.CreatedAt), toMillis(o.UpdatedAt),
	}
}

func normalizeOrder(o *entity.Order) {
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	if o.Status == "" {
		o.Status = entity.OrderPending
	}
}

func (s *SQLStore) GetOrder(ctx context.Context, id string) (entity.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	orders, err := s.attachItems(ctx, []orderRow{row})
	if err != nil {
		return entity.Order{}, err
	}
	return orders[0], nil
}

// InsertOrder yangi buyurtma; id band bo'lsa entity.ErrDuplicate.
func (s *SQLStore) InsertOrder(ctx context.Context, o entity.Order) error {
	normalizeOrder(&o)
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, s.q(`SELECT COUNT(*) FROM orders WHERE id = ?`), o.ID); err != nil {
			return err
		}
		if exists > 0 {
			return entity.ErrDuplicate
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO orders (`+orderColumns+`) VALUES (`+orderPlaceholders+`)`), orderArgs(o)...); err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		return s.insertItems(ctx, tx, o.ID, o.Items)
	})
}

// UpsertOrder saves the order; a non-empty item list replaces the stored one all-or-nothing.
func (s *SQLStore) UpsertOrder(ctx context.Context, o entity.Order) error {
	normalizeOrder(&o)
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO orders (`+orderColumns+`) VALUES (`+orderPlaceholders+`)
			ON CONFLICT (id) DO UPDATE SET
				user_id = excluded.user_id,
				status = excluded.status,
				customer_name = excluded.customer_name,
				customer_phone = excluded.customer_phone,
				customer_region = excluded.customer_region,
				customer_city = excluded.customer_city,
				customer_address = excluded.customer_address,
				comment = excluded.comment,
				total = excluded.total,
				tracking_number = excluded.tracking_number,
				tracking_carrier = excluded.tracking_carrier,
				telegram_id = excluded.telegram_id,
				updated_at = excluded.updated_at`), orderArgs(o)...)
		if err != nil {
			return fmt.Errorf("upsert order %s: %w", o.ID, err)
		}
		if len(o.Items) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM order_items WHERE order_id = ?`), o.ID); err != nil {
			return fmt.Errorf("replace items %s: %w", o.ID, err)
		}
		return s.insertItems(ctx, tx, o.ID, o.Items)
	})
}

func (s *SQLStore) insertItems(ctx context.Context, tx *sqlx.Tx, orderID string, items []entity.OrderItem) error {
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO order_items (order_id, product_id, name, brand, part_number, price, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			orderID, it.ProductID, it.Name, it.Brand, it.PartNumber, it.Price, qty)
		if err != nil {
			return fmt.Errorf("insert item for %s: %w", orderID, err)
		}
	}
	return nil
}

func (s *SQLStore) UpdateOrderStatus(ctx context.Context, id string, from, to entity.OrderStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`),
		string(to), toMillis(at), id, string(from))
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, err)
	}
	return s.expectTransition(ctx, res, id)
}

func (s *SQLStore) UpdateOrderTracking(ctx context.Context, id, number, carrier string, from, to entity.OrderStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE orders SET tracking_number = ?, tracking_carrier = ?, status = ?, updated_at = ?
		WHERE id = ? AND status = ?`), number, carrier, string(to), toMillis(at), id, string(from))
	if err != nil {
		return fmt.Errorf("update order tracking %s: %w", id, err)
	}
	return s.expectTransition(ctx, res, id)
}

// expectTransition: 0 qator o'zgargan bo'lsa buyurtma yo'q yoki holati boshqa
func (s *SQLStore) expectTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := s.db.GetContext(ctx, &exists, s.q(`SELECT COUNT(*) FROM orders WHERE id = ?`), id); err != nil {
		return fmt.Errorf("check order %s: %w", id, err)
	}
	if exists == 0 {
		return entity.ErrNotFound
	}
	return entity.ErrOrderChanged
}

// DeleteOrder buyurtma va uning qatorlarini o'chiradi
func (s *SQLStore) DeleteOrder(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM order_items WHERE order_id = ?`), id); err != nil {
			return fmt.Errorf("delete items %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, s.q(`DELETE FROM orders WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete order %s: %w", id, err)
		}
		return expectOne(res)
	})
}

// ListOrders newest first; limit <= 0 means all.
func (s *SQLStore) ListOrders(ctx context.Context, limit int) ([]entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.attachItems(ctx, rows)
}

func (s *SQLStore) ListOrdersByCustomer(ctx context.Context, telegramID int64) ([]entity.Order, error) {
	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+orderColumns+` FROM orders
		WHERE telegram_id = ? OR user_id = ?
		ORDER BY created_at DESC, id DESC`), telegramID, telegramID)
	if err != nil {
		return nil, fmt.Errorf("list orders by customer: %w", err)
	}
	return s.attachItems(ctx, rows)
}

func (s *SQLStore) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (s *SQLStore) CountOrdersByStatus(ctx context.Context, status entity.OrderStatus) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM orders WHERE status = ?`), string(status)); err != nil {
		return 0, fmt.Errorf("count orders by status: %w", err)
	}
	return n, nil
}

// attachItems loads items for all rows with one IN query.
func (s *SQLStore) attachItems(ctx context.Context, rows []orderRow) ([]entity.Order, error) {
	orders := make([]entity.Order, 0, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		orders = append(orders, r.toEntity())
		ids = append(ids, r.ID)
		index[r.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT id, order_id, product_id, name, brand, part_number, price, quantity
		FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := s.db.SelectContext(ctx, &items, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	for _, it := range items {
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it.toEntity())
		}
	}
	return orders, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
