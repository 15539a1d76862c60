package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSetting returns fallback when the key was never written.
func (s *SQLStore) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.q(`SELECT value FROM settings WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// MarkEventProcessed birinchi marta true qaytaradi, takrorda false
func (s *SQLStore) MarkEventProcessed(ctx context.Context, eventID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO processed_events (event_id, processed_at) VALUES (?, ?)
		ON CONFLICT (event_id) DO NOTHING`), eventID, toMillis(at))
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
