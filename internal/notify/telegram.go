// Пакет notify отправляет служебные уведомления администратору в Telegram.
// Package notify sends service notifications to the administrator via Telegram.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Notifier - обертка над Telegram Bot API только для отправки сообщений.
// Нулевой Notifier безопасен: все отправки молча пропускаются.
// Notifier is a send-only wrapper over the Telegram Bot API.
// A nil Notifier is safe: every send is silently skipped.
type Notifier struct {
	api         *tgbotapi.BotAPI
	adminChatID int64
	Debug       bool
}

// Admin - глобальный нотификатор администратора. Остается nil, если токен
// или chat_id не заданы в конфигурации.
// Admin is the global administrator notifier. Stays nil when the token or
// chat_id is not configured.
var Admin *Notifier

// InitNotifier инициализирует нотификатор. Пустой токен или нулевой chat_id
// не являются ошибкой: уведомления просто отключаются.
// InitNotifier initializes the notifier. An empty token or zero chat_id is
// not an error: notifications are simply disabled.
func InitNotifier(token string, adminChatID int64, debug bool) error {
	if token == "" || adminChatID == 0 {
		log.Println("InitNotifier: токен Telegram или chat_id администратора не заданы, уведомления отключены")
		return nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug

	log.Printf("InitNotifier: авторизован как аккаунт %s", api.Self.UserName)

	Admin = &Notifier{
		api:         api,
		adminChatID: adminChatID,
		Debug:       debug,
	}
	return nil
}

// Send отправляет текстовое сообщение администратору.
func (n *Notifier) Send(text string) error {
	if n == nil || n.api == nil {
		return nil
	}
	if n.Debug {
		log.Printf("Notifier.Send: ChatID=%d, Text='%.50s...'", n.adminChatID, text)
	}
	msg := tgbotapi.NewMessage(n.adminChatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("не удалось отправить уведомление: %w", err)
	}
	return nil
}

// SendToAdmin отправляет сообщение через глобальный нотификатор, если он включен.
// Ошибка отправки только логируется: уведомление не должно ломать основной сценарий.
func SendToAdmin(text string) {
	if err := Admin.Send(text); err != nil {
		log.Printf("SendToAdmin: %v", err)
	}
}
