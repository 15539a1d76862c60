package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"

	connectAttemptsDefault = 20
	connectDelayDefault    = 2 * time.Second
)

func init() {
	// modernc drayveri sqlx ga noma'lum, "?" placeholder bilan ishlaydi
	sqlx.BindDriver(driverSQLite, sqlx.QUESTION)
}

// Options DB ulanish parametrlari
type Options struct {
	Driver          string
	DSN             string
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// SQLStore is the single relational store shared by the bot and the storefront.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

var (
	_ repository.UserRepository     = (*SQLStore)(nil)
	_ repository.GarageRepository   = (*SQLStore)(nil)
	_ repository.OrderRepository    = (*SQLStore)(nil)
	_ repository.SupportRepository  = (*SQLStore)(nil)
	_ repository.SettingsRepository = (*SQLStore)(nil)
	_ repository.EventRepository    = (*SQLStore)(nil)
)

// Open ulanadi, sozlaydi va migratsiyalarni qo'llaydi.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", "sqlite3":
		driver = driverSQLite
	case "postgresql":
		driver = driverPostgres
	}
	if driver != driverSQLite && driver != driverPostgres {
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("db dsn is empty")
	}

	db, err := openWithRetry(ctx, driver, opts)
	if err != nil {
		return nil, err
	}

	if driver == driverSQLite {
		// bitta yozuvchi: barcha so'rovlar bitta ulanish orqali ketadi
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
		if !strings.Contains(opts.DSN, ":memory:") {
			pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
		}
		for _, p := range pragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite %s: %w", p, err)
			}
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := migrate(ctx, db.DB, driver); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.L().Info("store ready", zap.String("driver", driver))
	return &SQLStore{db: db, driver: driver}, nil
}

func openWithRetry(ctx context.Context, driver string, opts Options) (*sqlx.DB, error) {
	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = connectAttemptsDefault
	}
	delay := opts.ConnectDelay
	if delay <= 0 {
		delay = connectDelayDefault
	}
	// sqlite fayl ochilmasa kutishdan foyda yo'q
	if driver == driverSQLite {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := sqlx.Open(driver, opts.DSN)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err
		logger.L().Warn("db connect failed",
			zap.String("driver", driver),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil, fmt.Errorf("%s connection failed: %w", driver, lastErr)
}

func migrate(ctx context.Context, db *sql.DB, driver string) error {
	dialect, dir := "sqlite3", "migrations/sqlite"
	if driver == driverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	return nil
}

// Close ulanishni yopish
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping health check uchun
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) q(query string) string {
	return s.db.Rebind(query)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 == 0 {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
