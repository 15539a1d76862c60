package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/pkg/logger"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_orders_created_total",
		Help: "Orders created, by source",
	}, []string{"source"})

	OrdersCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_orders_cancelled_total",
		Help: "Orders cancelled, by who cancelled",
	}, []string{"by"})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_order_status_changes_total",
		Help: "Order status transitions, by target status",
	}, []string{"status"})

	CancelRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartech_order_cancel_rejected_total",
		Help: "Cancellation attempts outside the window or state",
	})

	SupportSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_support_sessions_total",
		Help: "Support session transitions, by event",
	}, []string{"event"})

	SupportMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_support_messages_total",
		Help: "Support messages stored, by sender and whether relayed live",
	}, []string{"sender", "relayed"})

	UpdatesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_bot_updates_total",
		Help: "Telegram updates handled, by kind",
	}, []string{"kind"})

	UpdatePanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartech_bot_update_panics_total",
		Help: "Updates dropped after a recovered panic",
	})

	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cartech_bot_poll_errors_total",
		Help: "getUpdates failures",
	})

	SendFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_bot_send_failures_total",
		Help: "Outbound Bot API call failures, by operation",
	}, []string{"op"})

	UpdateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cartech_bot_update_duration_seconds",
		Help:    "Time spent handling one update",
		Buckets: prometheus.DefBuckets,
	})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cartech_events_total",
		Help: "Integration events, by direction and result",
	}, []string{"direction", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cartech_http_request_duration_seconds",
		Help:    "Storefront API latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler /metrics uchun
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled. Empty addr disables it.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.L().Info("metrics server started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("metrics server failed", zap.Error(err))
		}
	}()
}
