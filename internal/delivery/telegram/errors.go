package telegram

import (
	"errors"
	"html"
	"regexp"

	"github.com/yourusername/cartech-bot/internal/domain/entity"
)

var domainErrors = []struct {
	err    error
	notice string
}{
	{entity.ErrNotFound, "❌ Не найдено."},
	{entity.ErrForbidden, "⛔ Доступ запрещён."},
	{entity.ErrSessionNotWaiting, "ℹ️ Запрос уже обработан."},
	{entity.ErrSessionNotActive, "⚠️ Сессия не активна. Диалог уже завершён."},
	{entity.ErrSessionClosed, "ℹ️ Чат уже завершён."},
	{entity.ErrNoOpenSession, "ℹ️ Нет активного диалога с поддержкой."},
	{entity.ErrInvalidStatus, "⚠️ Некорректный статус."},
	{entity.ErrOrderTerminal, "⚠️ Заказ уже завершён, изменить его нельзя."},
	{entity.ErrStatusRegression, "⚠️ Статус нельзя вернуть на предыдущий этап."},
	{entity.ErrCancelWindowExpired, "⏱ Время для отмены заказа истекло."},
	{entity.ErrOrderChanged, "⚠️ Статус заказа уже изменён. Обновите карточку."},
	{errEmptyInput, "⚠️ Пустое сообщение."},
}

func isDomainError(err error) bool {
	if _, ok := entity.AsValidation(err); ok {
		return true
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return true
		}
	}
	return false
}

// userNotice maps err to a short HTML message for the chat.
func userNotice(err error) string {
	if ve, ok := entity.AsValidation(err); ok {
		return "⚠️ " + ve.Message
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.notice
		}
	}
	return "⚠️ Что-то пошло не так. Попробуйте позже."
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// plainNotice callback javobi uchun: HTML teglarsiz, 200 belgigacha
func plainNotice(s string) string {
	s = html.UnescapeString(htmlTagRe.ReplaceAllString(s, ""))
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:199]) + "…"
	}
	return s
}
