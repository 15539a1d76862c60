package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/config"
	"github.com/yourusername/cartech-bot/internal/delivery/telegram"
	"github.com/yourusername/cartech-bot/internal/domain/repository"
	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/infrastructure/storage"
	"github.com/yourusername/cartech-bot/internal/usecase"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

func main() {
	// Konfiguratsiyani yuklash
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Konfiguratsiya yuklanmadi: %v", err)
	}
	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		log.Fatalf("❌ Logger sozlanmadi: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.L().Fatal("bot stopped with error", zap.Error(err))
	}
	logger.L().Info("✅ Bot to'xtatildi")
}

func run(cfg *config.Config) error {
	if err := cfg.ValidateBot(); err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		logger.L().Warn("TELEGRAM_BOT_TOKEN bo'sh, bot ishga tushmaydi")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := loadLocation(cfg.App.Timezone)

	// 1. Store
	store, err := storage.Open(ctx, storage.Options{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		ConnectAttempts: cfg.DB.ConnectAttempts,
		ConnectDelay:    cfg.DB.ConnectDelay,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.L().Info("✅ Store tayyor", zap.String("driver", cfg.DB.Driver))

	// 2. Chat state: Redis bo'lsa TTL bilan, aks holda xotirada
	states, closeStates, err := openStates(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStates()

	// 3. Telegram client
	endpoint := cfg.Telegram.APIBaseURL + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Telegram.Token, endpoint)
	if err != nil {
		return fmt.Errorf("telegram client: %w", err)
	}
	logger.L().Info("✅ Telegram bot tayyor", zap.String("username", api.Self.UserName))

	// 4. Events
	var publisher events.Publisher
	var consumer *events.KafkaConsumer
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer kp.Close()
		publisher = kp
		consumer = events.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID)
		defer consumer.Close()
		logger.L().Info("✅ Kafka ulandi", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// 5. Use cases
	operators := []int64(cfg.Telegram.OperatorIDs)
	support := usecase.NewSupportUseCase(store, store, store, nil)
	orders := usecase.NewOrderUseCase(usecase.OrderUseCaseDeps{
		Orders:    store,
		Users:     store,
		Garage:    store,
		Notifier:  telegram.NewNotifier(api),
		Publisher: publisher,
		Operators: operators,
	})
	profiles := usecase.NewProfileUseCase(store, store, nil)
	pricing := usecase.NewPricingUseCase(store)

	handler := telegram.NewBotHandler(api, telegram.Deps{
		Support:        support,
		Orders:         orders,
		Profiles:       profiles,
		Pricing:        pricing,
		States:         states,
		Events:         store,
		Operators:      operators,
		WebAppURL:      cfg.Telegram.WebAppURL,
		SupportContact: cfg.Telegram.SupportContact,
		PollTimeout:    cfg.Telegram.PollTimeout,
		RetryDelay:     cfg.Telegram.PollRetryDelay,
		Location:       loc,
	})
	handler.Setup()

	metrics.Serve(ctx, cfg.HTTP.MetricsAddr)

	if consumer != nil {
		go func() {
			if err := consumer.Run(ctx, handler.HandleOrderPlaced); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("order events consumer stopped", zap.Error(err))
			}
		}()
	}

	logger.L().Info("🤖 Bot ishlayapti. To'xtatish uchun Ctrl+C ni bosing.",
		zap.Int("operators", len(operators)))
	return handler.Start(ctx)
}

func openStates(ctx context.Context, cfg config.RedisConfig) (repository.StateRepository, func(), error) {
	if cfg.URL == "" {
		return storage.NewMemoryStateRepository(), func() {}, nil
	}
	rs, err := storage.NewRedisStateRepository(ctx, cfg.URL, cfg.StateTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis state store: %w", err)
	}
	logger.L().Info("✅ Redis chat state tayyor", zap.Duration("ttl", cfg.StateTTL))
	return rs, func() { _ = rs.Close() }, nil
}

func loadLocation(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	logger.L().Warn("timezone topilmadi, UTC ishlatiladi", zap.String("tz", name))
	return time.UTC
}
