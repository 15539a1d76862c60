package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/infrastructure/events"
	"github.com/yourusername/cartech-bot/internal/infrastructure/storage"
)

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: html})
	return n.err
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type recordingPublisher struct {
	events []events.OrderPlaced
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, ev events.OrderPlaced) error {
	p.events = append(p.events, ev)
	return p.err
}
