package telegram

import "gopkg.in/telebot.v3"

// Callback uniques of the consent buttons attached to the notice.
const (
	CallbackConsent = "tm_consent"
	CallbackDecline = "tm_decline"
)

// Client delivers admin notices over Telegram.
type Client interface {
	SendNotice(recipientChatID int64, text string, markup *telebot.ReplyMarkup) error
}

// NoticeMarkup builds the inline keyboard with the two consent answers.
func NoticeMarkup() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	btnConsent := markup.Data("I agree", CallbackConsent)
	btnDecline := markup.Data("No thanks", CallbackDecline)
	markup.Inline(markup.Row(btnConsent, btnDecline))
	return markup
}
