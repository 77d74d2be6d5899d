// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"customizer_telemetry/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	adminService *app.AdminService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")
		return c.Send(StartText(adminService.IsAdmin(senderID), c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")
		if !adminService.IsAdmin(senderID) {
			return c.Send("There are no commands available for you.")
		}
		return c.Send(HelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

// StartText is the greeting for /start.
func StartText(isAdmin bool, firstName string) string {
	if isAdmin {
		return fmt.Sprintf("Hello, %s! I will ask for your telemetry consent and report its status. Use /help for the list of commands.", firstName)
	}
	return "Hello! This bot only talks to the site administrator."
}

// HelpText lists the administrator commands.
func HelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("`/telemetry`\n - Show the consent state and the last report. Sends the consent question if it is still open.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
