package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/domain/consent"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers the /telemetry command. It prints the
// current status and, while consent is undecided, pushes the notice with the
// answer buttons.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, notifService app.NotificationService, baseLogger *logrus.Entry) {
	b.Handle("/telemetry", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/telemetry",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		st, err := adminService.Status(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to run this command.")
			}
			handlerLogger.WithError(err).Error("Failed to load telemetry status")
			return c.Send("Something went wrong while loading the telemetry status.")
		}

		if err := c.Send(FormatStatus(st)); err != nil {
			return err
		}
		if st.State != consent.StateUndecided {
			return nil
		}

		if _, err := notifService.PushNotice(ctx); err != nil {
			handlerLogger.WithError(err).Error("Failed to push telemetry notice")
			return c.Send("Could not send the consent notice.")
		}
		return nil
	})
}

// FormatStatus renders the reporter status as a chat message.
func FormatStatus(st app.Status) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Telemetry consent: %s\n", describeState(st.State)))
	if st.LastSentAt != nil {
		b.WriteString(fmt.Sprintf("Last report: %s\n", st.LastSentAt.Format(time.RFC1123)))
		b.WriteString(fmt.Sprintf("Next report not before: %s\n", st.NextDueAt.Format(time.RFC1123)))
	} else {
		b.WriteString("Last report: never\n")
	}
	b.WriteString(fmt.Sprintf("Field types in use: %d", len(st.Payload.FieldTypesUsed)))
	return b.String()
}

func describeState(s consent.State) string {
	switch s {
	case consent.StateOptedIn:
		return "granted"
	case consent.StateDeclined:
		return "declined"
	default:
		return "not answered yet"
	}
}
