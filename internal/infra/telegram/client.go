// internal/infra/telegram/client.go
package telegram

import (
	domainTelegram "customizer_telemetry/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

var _ domainTelegram.Client = (*TelebotAdapter)(nil)

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendNotice sends the notice text with the given inline keyboard. Links are
// sent without a preview.
func (tba *TelebotAdapter) SendNotice(recipientChatID int64, text string, markup *telebot.ReplyMarkup) error {
	options := &telebot.SendOptions{
		ReplyMarkup:           markup,
		DisableWebPagePreview: true,
	}
	recipient := &telebot.User{ID: recipientChatID} // The admin is a direct user chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}
