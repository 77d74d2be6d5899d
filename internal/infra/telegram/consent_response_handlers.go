// internal/infra/telegram/consent_response_handlers.go
package telegram

import (
	"context"
	"errors"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/domain/consent"
	domainTelegram "customizer_telemetry/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterConsentResponseHandlers wires the two notice buttons to the admin
// service.
func RegisterConsentResponseHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	handlerLogger := baseLogger.WithField("handler_group", "consent_response")

	b.Handle(&telebot.Btn{Unique: domainTelegram.CallbackConsent}, func(c telebot.Context) error {
		text := answerConsent(ctx, adminService, c.Sender().ID, app.DecisionConsent, handlerLogger)
		if err := c.Respond(&telebot.CallbackResponse{Text: text}); err != nil {
			return err
		}
		return clearKeyboard(c)
	})

	b.Handle(&telebot.Btn{Unique: domainTelegram.CallbackDecline}, func(c telebot.Context) error {
		text := answerConsent(ctx, adminService, c.Sender().ID, app.DecisionDecline, handlerLogger)
		if err := c.Respond(&telebot.CallbackResponse{Text: text}); err != nil {
			return err
		}
		return clearKeyboard(c)
	})
}

// answerConsent records the decision and returns the text shown to the user.
func answerConsent(ctx context.Context, adminService *app.AdminService, senderID int64, d app.Decision, logger *logrus.Entry) string {
	logCtx := logger.WithFields(logrus.Fields{
		"sender_id": senderID,
		"decision":  d.String(),
	})

	state, err := adminService.Answer(ctx, senderID, d)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logCtx.Warn("Unauthorized consent answer")
		return "Only the site administrator can answer this."
	case err != nil:
		logCtx.WithError(err).Error("Failed to record consent answer")
		return "Something went wrong, please try again later."
	}

	logCtx.WithField("state", state).Info("Consent answer recorded")
	switch {
	case state == consent.StateOptedIn && d == app.DecisionConsent:
		return "Thanks! Anonymous usage data will be sent."
	case state == consent.StateOptedIn:
		// An older notice answered after consent was given.
		return "Consent was already granted, so usage data will still be sent."
	case state == consent.StateDeclined:
		return "Understood. No usage data will be sent."
	default:
		return "Your answer could not be applied, please try again later."
	}
}

// clearKeyboard removes the buttons from the answered notice.
func clearKeyboard(c telebot.Context) error {
	if c.Message() == nil {
		return nil
	}
	_, err := c.Bot().EditReplyMarkup(c.Message(), nil)
	return err
}
