package telegramapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
)

// Bot API javobi
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Client sends messages through the Bot API from processes that do not poll,
// the storefront API in particular. The token stays on the server.
type Client struct {
	http  *resty.Client
	token string
}

// NewClient baseURL odatda https://api.telegram.org
func NewClient(baseURL, token string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpClient, token: token}
}

// Notify implements notification.Notifier.
func (c *Client) Notify(ctx context.Context, chatID int64, html string) error {
	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			ChatID:                chatID,
			Text:                  html,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/bot" + c.token + "/sendMessage")
	if err != nil {
		metrics.SendFailuresTotal.WithLabelValues("sendMessage").Inc()
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if resp.IsError() || !out.OK {
		metrics.SendFailuresTotal.WithLabelValues("sendMessage").Inc()
		return fmt.Errorf("telegram sendMessage status %d: %s", resp.StatusCode(), out.Description)
	}
	return nil
}
