package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/config"
	"github.com/yourusername/cartech-bot/internal/delivery/webapp"
	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/infrastructure/storage"
	"github.com/yourusername/cartech-bot/internal/infrastructure/telegramapi"
	"github.com/yourusername/cartech-bot/internal/usecase"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Konfiguratsiya yuklanmadi: %v", err)
	}
	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		log.Fatalf("❌ Logger sozlanmadi: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.L().Fatal("storefront stopped with error", zap.Error(err))
	}
	logger.L().Info("✅ Storefront to'xtatildi")
}

func run(cfg *config.Config) error {
	if err := cfg.ValidateStorefront(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	operators := []int64(cfg.Telegram.OperatorIDs)
	notifier := telegramapi.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.Token)

	// Kafka bo'lsa bot jarayoni xabar beradi, aks holda shu yerdan to'g'ridan-to'g'ri
	var publisher events.Publisher
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer kp.Close()
		publisher = kp
	} else {
		publisher = events.NewOperatorAlertPublisher(notifier, operators)
	}

	orders := usecase.NewOrderUseCase(usecase.OrderUseCaseDeps{
		Orders:    store,
		Users:     store,
		Garage:    store,
		Notifier:  notifier,
		Publisher: publisher,
		Operators: operators,
	})

	router := webapp.NewRouter(webapp.Deps{
		Orders:   orders,
		Profiles: usecase.NewProfileUseCase(store, store, nil),
		Pricing:  usecase.NewPricingUseCase(store),
		Auth: webapp.NewAuthenticator(webapp.AuthConfig{
			BotToken:       cfg.Telegram.Token,
			InitDataMaxAge: cfg.Storefront.InitDataMaxAge,
			Secret:         cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			TTL:            cfg.JWT.TTL,
			Operators:      operators,
		}, nil),
		Store:         store,
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
	})

	// Storefront /metrics ni o'zi beradi; alohida port faqat so'ralganda
	metrics.Serve(ctx, cfg.HTTP.MetricsAddr)

	srv := &http.Server{
		Addr:              cfg.HTTP.StorefrontAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("🛒 Storefront API ishga tushdi", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L().Info("🛑 To'xtatish signali qabul qilindi...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
