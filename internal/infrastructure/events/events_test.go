package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
	"github.com/yourusername/cartech-bot/internal/notification"
)

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.queue) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestKafkaRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{}
	pub := &KafkaPublisher{writer: w}

	ev := NewOrderPlaced(entity.Order{ID: "CT2602-AAAAA", Total: 4500}, time.Now())
	require.NoError(t, pub.PublishOrderPlaced(ctx, ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "CT2602-AAAAA", string(w.msgs[0].Key))

	bad := kafka.Message{Offset: 1, Value: []byte(`{"event_type":"SOMETHING"}`)}
	good := w.msgs[0]
	good.Offset = 2
	r := &fakeReader{queue: []kafka.Message{bad, good}}
	cons := &KafkaConsumer{reader: r}

	var got []OrderPlaced
	err := cons.Run(ctx, func(_ context.Context, e OrderPlaced) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.EventID, got[0].EventID)
	assert.Equal(t, int64(4500), got[0].Order.Total)
	assert.Equal(t, []int64{1, 2}, r.committed)
}

func TestConsumerLeavesFailedMessageUncommitted(t *testing.T) {
	ev := NewOrderPlaced(entity.Order{ID: "CT2602-BBBBB"}, time.Now())
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	r := &fakeReader{queue: []kafka.Message{{Offset: 7, Value: payload}}}
	cons := &KafkaConsumer{reader: r}

	require.NoError(t, cons.Run(context.Background(), func(context.Context, OrderPlaced) error {
		return errors.New("boom")
	}))
	assert.Empty(t, r.committed)
}

func TestDecodeOrderPlacedVersion(t *testing.T) {
	ev := NewOrderPlaced(entity.Order{ID: "CT1"}, time.Now())
	ev.Version = 2
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	_, err = DecodeOrderPlaced(payload)
	require.Error(t, err)
}

func TestOperatorAlertPublisher(t *testing.T) {
	sent := map[int64]string{}
	n := notification.NotifierFunc(func(_ context.Context, chatID int64, html string) error {
		if chatID == 3 {
			return errors.New("blocked")
		}
		sent[chatID] = html
		return nil
	})
	pub := NewOperatorAlertPublisher(n, []int64{1, 2, 3})

	err := pub.PublishOrderPlaced(context.Background(), NewOrderPlaced(entity.Order{ID: "CT2602-CCCCC"}, time.Now()))
	require.Error(t, err)
	assert.Len(t, sent, 2)
	assert.Contains(t, sent[1], "Новый заказ #CT2602-CCCCC")
}
