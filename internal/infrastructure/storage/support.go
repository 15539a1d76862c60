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

type sessionRow struct {
	ID         int64         `db:"id"`
	UserID     int64         `db:"user_id"`
	UserName   string        `db:"user_name"`
	UserTG     string        `db:"user_tg"`
	Phone      string        `db:"phone"`
	Car        string        `db:"car"`
	Question   string        `db:"question"`
	Status     string        `db:"status"`
	OperatorID int64         `db:"operator_id"`
	CreatedAt  int64         `db:"created_at"`
	AcceptedAt sql.NullInt64 `db:"accepted_at"`
	ClosedAt   sql.NullInt64 `db:"closed_at"`
}

func (r sessionRow) toEntity() entity.SupportSession {
	return entity.SupportSession{
		ID:         r.ID,
		UserID:     r.UserID,
		UserName:   r.UserName,
		UserTG:     r.UserTG,
		Phone:      r.Phone,
		Car:        r.Car,
		Question:   r.Question,
		Status:     entity.SessionStatus(r.Status),
		OperatorID: r.OperatorID,
		CreatedAt:  fromMillis(r.CreatedAt),
		AcceptedAt: nullMillis(r.AcceptedAt),
		ClosedAt:   nullMillis(r.ClosedAt),
	}
}

type messageRow struct {
	ID        int64  `db:"id"`
	SessionID int64  `db:"session_id"`
	Sender    string `db:"sender"`
	Text      string `db:"text"`
	CreatedAt int64  `db:"created_at"`
}

func (r messageRow) toEntity() entity.SupportMessage {
	return entity.SupportMessage{
		ID:        r.ID,
		SessionID: r.SessionID,
		Sender:    entity.Sender(r.Sender),
		Text:      r.Text,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

const sessionColumns = `id, user_id, user_name, user_tg, phone, car, question, status, operator_id,
	created_at, accepted_at, closed_at`

// CreateSession mijozning oldingi ochiq sessiyalarini yopadi va yangisini ochadi.
func (s *SQLStore) CreateSession(ctx context.Context, userID int64, snap entity.SupportSnapshot, at time.Time) (entity.SupportSession, error) {
	sess := entity.SupportSession{
		UserID:    userID,
		UserName:  snap.UserName,
		UserTG:    snap.UserTG,
		Phone:     snap.Phone,
		Car:       snap.Car,
		Question:  snap.Question,
		Status:    entity.SessionWaiting,
		CreatedAt: at,
	}
	ms := toMillis(at)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`
			UPDATE support_sessions SET status = ?, closed_at = ?
			WHERE user_id = ? AND status IN (?, ?)`),
			string(entity.SessionClosed), ms, userID,
			string(entity.SessionWaiting), string(entity.SessionActive)); err != nil {
			return fmt.Errorf("close previous sessions: %w", err)
		}
		if err := tx.GetContext(ctx, &sess.ID, s.q(`
			INSERT INTO support_sessions (user_id, user_name, user_tg, phone, car, question, status, operator_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?) RETURNING id`),
			userID, snap.UserName, snap.UserTG, snap.Phone, snap.Car, snap.Question,
			string(entity.SessionWaiting), ms); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if snap.Question == "" {
			return nil
		}
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO support_messages (session_id, sender, text, created_at) VALUES (?, ?, ?, ?)`),
			sess.ID, string(entity.SenderUser), snap.Question, ms)
		return err
	})
	if err != nil {
		return entity.SupportSession{}, err
	}
	return sess, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id int64) (entity.SupportSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+sessionColumns+` FROM support_sessions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.SupportSession{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.SupportSession{}, fmt.Errorf("get session %d: %w", id, err)
	}
	return row.toEntity(), nil
}

// OpenSessionByUser returns the most recent waiting or active session.
func (s *SQLStore) OpenSessionByUser(ctx context.Context, userID int64) (entity.SupportSession, bool, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+sessionColumns+` FROM support_sessions
		WHERE user_id = ? AND status IN (?, ?)
		ORDER BY id DESC LIMIT 1`),
		userID, string(entity.SessionWaiting), string(entity.SessionActive))
	if err != nil {
		return entity.SupportSession{}, false, fmt.Errorf("open session by user: %w", err)
	}
	if len(rows) == 0 {
		return entity.SupportSession{}, false, nil
	}
	return rows[0].toEntity(), true, nil
}

// ListSessionsByStatus: waiting eng eskisi birinchi, active oxirgi qabul qilingani birinchi.
func (s *SQLStore) ListSessionsByStatus(ctx context.Context, status entity.SessionStatus) ([]entity.SupportSession, error) {
	order := `created_at DESC, id DESC`
	switch status {
	case entity.SessionWaiting:
		order = `created_at ASC, id ASC`
	case entity.SessionActive:
		order = `accepted_at DESC, id DESC`
	}
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+sessionColumns+` FROM support_sessions WHERE status = ? ORDER BY `+order), string(status))
	if err != nil {
		return nil, fmt.Errorf("list sessions %s: %w", status, err)
	}
	out := make([]entity.SupportSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntity())
	}
	return out, nil
}

// CompareAndSetStatus is the only way a session leaves waiting.
func (s *SQLStore) CompareAndSetStatus(ctx context.Context, id int64, from, to entity.SessionStatus, operatorID int64, at time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	switch to {
	case entity.SessionActive:
		res, err = s.db.ExecContext(ctx, s.q(`
			UPDATE support_sessions SET status = ?, accepted_at = ?, operator_id = ?
			WHERE id = ? AND status = ?`),
			string(to), toMillis(at), operatorID, id, string(from))
	case entity.SessionClosed:
		res, err = s.db.ExecContext(ctx, s.q(`
			UPDATE support_sessions SET status = ?, closed_at = ?
			WHERE id = ? AND status = ?`),
			string(to), toMillis(at), id, string(from))
	default:
		return false, fmt.Errorf("session cannot move to %q", to)
	}
	if err != nil {
		return false, fmt.Errorf("session %d %s->%s: %w", id, from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CloseSession closes a waiting or active session. Unknown id gives ErrNotFound.
func (s *SQLStore) CloseSession(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE support_sessions SET status = ?, closed_at = ?
		WHERE id = ? AND status IN (?, ?)`),
		string(entity.SessionClosed), toMillis(at), id,
		string(entity.SessionWaiting), string(entity.SessionActive))
	if err != nil {
		return false, fmt.Errorf("close session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.GetSession(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLStore) AddMessage(ctx context.Context, msg entity.SupportMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO support_messages (session_id, sender, text, created_at) VALUES (?, ?, ?, ?)`),
		msg.SessionID, string(msg.Sender), msg.Text, toMillis(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("add support message: %w", err)
	}
	return nil
}

// ListMessages oxirgi `limit` ta xabar, xronologik tartibda
func (s *SQLStore) ListMessages(ctx context.Context, sessionID int64, limit int) ([]entity.SupportMessage, error) {
	query := `SELECT id, session_id, sender, text, created_at FROM support_messages WHERE session_id = ? ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list support messages: %w", err)
	}
	out := make([]entity.SupportMessage, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toEntity()
	}
	return out, nil
}

func (s *SQLStore) CountMessages(ctx context.Context, sessionID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM support_messages WHERE session_id = ?`), sessionID); err != nil {
		return 0, fmt.Errorf("count support messages: %w", err)
	}
	return n, nil
}
