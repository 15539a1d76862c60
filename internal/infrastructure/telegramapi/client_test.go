package telegramapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySendsHTMLMessage(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "123:abc")
	require.NoError(t, c.Notify(context.Background(), 42, "<b>hi</b>"))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Equal(t, "<b>hi</b>", got.Text)
}

func TestNotifyReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "t").Notify(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}
