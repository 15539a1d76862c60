package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes OrderPlaced events keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a new Kafka producer
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Order.ID),
		Value: payload,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsTotal.WithLabelValues("out", "error").Inc()
		return fmt.Errorf("write order placed to kafka: %w", err)
	}
	metrics.EventsTotal.WithLabelValues("out", "ok").Inc()
	logger.L().Debug("published order placed",
		zap.String("event_id", ev.EventID),
		zap.String("order_id", ev.Order.ID))
	return nil
}

// Close closes the producer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads OrderPlaced events from a consumer group.
type KafkaConsumer struct {
	reader messageReader
}

// NewKafkaConsumer creates a new Kafka consumer
func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return &KafkaConsumer{reader: reader}
}

// Run fetches until ctx is done. Undecodable messages are committed and
// skipped; a handler error leaves the message uncommitted for redelivery.
func (c *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		ev, err := DecodeOrderPlaced(msg.Value)
		if err != nil {
			metrics.EventsTotal.WithLabelValues("in", "invalid").Inc()
			logger.L().Warn("skipping kafka message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			if cerr := c.reader.CommitMessages(ctx, msg); cerr != nil {
				logger.L().Error("kafka commit failed", zap.Error(cerr))
			}
			continue
		}

		if err := handle(ctx, ev); err != nil {
			metrics.EventsTotal.WithLabelValues("in", "error").Inc()
			logger.L().Error("order placed handler failed",
				zap.String("event_id", ev.EventID),
				zap.Error(err))
			continue
		}
		metrics.EventsTotal.WithLabelValues("in", "ok").Inc()
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.L().Error("kafka commit failed", zap.Error(err))
		}
	}
}

// Close closes the consumer
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
