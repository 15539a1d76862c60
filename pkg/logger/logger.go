package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log = zap.NewNop()
)

// Init global loggerni sozlash. env "production" JSON encoder ishlatadi.
func Init(env, level string) error {
	var cfg zap.Config
	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if strings.TrimSpace(level) != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = lvl
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(built)
	return nil
}

// Set replaces the global logger (tests use zaptest/observer loggers).
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	log = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
}

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// S returns the sugared logger for printf-style call sites.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}
