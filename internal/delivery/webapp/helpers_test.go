package webapp

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/cartech-bot/internal/infrastructure/storage"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

const (
	testBotToken = "123456:TEST-TOKEN"
	testSecret   = "jwt-secret"
	operatorTG   = int64(900)
	customerTG   = int64(100)
)

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) Notify(_ context.Context, chatID int64, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{chatID, html})
	return nil
}

func (n *recordingNotifier) to(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	handler  http.Handler
	auth     *Authenticator
	clock    *clock
	notifier *recordingNotifier
	orders   usecase.OrderUseCase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := storage.Open(context.Background(), storage.Options{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ts := &testServer{
		clock:    &clock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}
	ts.orders = usecase.NewOrderUseCase(usecase.OrderUseCaseDeps{
		Orders:    st,
		Users:     st,
		Garage:    st,
		Notifier:  ts.notifier,
		Operators: []int64{operatorTG},
		Clock:     ts.clock.Now,
	})
	ts.auth = NewAuthenticator(AuthConfig{
		BotToken:       testBotToken,
		InitDataMaxAge: time.Hour,
		Secret:         testSecret,
		Issuer:         "cartech",
		TTL:            time.Hour,
		Operators:      []int64{operatorTG},
	}, ts.clock.Now)
	ts.handler = NewRouter(Deps{
		Orders:   ts.orders,
		Profiles: usecase.NewProfileUseCase(st, st, ts.clock.Now),
		Pricing:  usecase.NewPricingUseCase(st),
		Auth:     ts.auth,
		Store:    st,
	})
	return ts
}

// signedInitData builds init data the way Telegram signs it.
func signedInitData(userID int64, authDate time.Time) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAH")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Иван","username":"ivan"}`)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + values.Get(k)
	}
	values.Set("hash", hex.EncodeToString(signInitData(strings.Join(pairs, "\n"), testBotToken)))
	return values.Encode()
}

func (ts *testServer) token(t *testing.T, telegramID int64) string {
	t.Helper()
	tok, _, err := ts.auth.Mint(telegramID)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
