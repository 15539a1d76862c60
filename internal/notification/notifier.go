package notification

import "context"

// Notifier delivers an HTML-formatted message to a Telegram chat.
// Failures are reported to the caller, who logs them and keeps going.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, html string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, chatID int64, html string) error

func (f NotifierFunc) Notify(ctx context.Context, chatID int64, html string) error {
	return f(ctx, chatID, html)
}

// Nop hech narsa yubormaydi
var Nop Notifier = NotifierFunc(func(context.Context, int64, string) error { return nil })
