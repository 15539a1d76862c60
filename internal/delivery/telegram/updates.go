package telegram

import (
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// inbound is the closed set of update kinds the router understands.
type inbound interface {
	kind() string
}

type textUpdate struct {
	chatID    int64
	messageID int
	from      *tgbotapi.User
	text      string
	// command is lowercase without the slash and @botname; empty for plain text.
	command string
	args    string
}

type callbackUpdate struct {
	id        string
	chatID    int64
	messageID int
	from      *tgbotapi.User
	data      string
}

type ignoredUpdate struct {
	reason string
}

func (textUpdate) kind() string     { return "text" }
func (callbackUpdate) kind() string { return "callback" }
func (ignoredUpdate) kind() string  { return "ignored" }

func classify(u tgbotapi.Update) inbound {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.Message == nil || cq.Message.Chat == nil {
			return ignoredUpdate{reason: "inline callback"}
		}
		return callbackUpdate{
			id:        cq.ID,
			chatID:    cq.Message.Chat.ID,
			messageID: cq.Message.MessageID,
			from:      cq.From,
			data:      cq.Data,
		}
	case u.Message != nil:
		m := u.Message
		if m.Chat == nil || !m.Chat.IsPrivate() {
			return ignoredUpdate{reason: "non-private chat"}
		}
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return ignoredUpdate{reason: "non-text message"}
		}
		cmd, args := splitCommand(text)
		return textUpdate{
			chatID:    m.Chat.ID,
			messageID: m.MessageID,
			from:      m.From,
			text:      text,
			command:   cmd,
			args:      args,
		}
	}
	return ignoredUpdate{reason: "unsupported update"}
}

// splitCommand "/setname@CarTechBot Иван Петров" -> ("setname", "Иван Петров")
func splitCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i:]
	}
	head = strings.TrimPrefix(head, "/")
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func firstName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.FirstName
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}
