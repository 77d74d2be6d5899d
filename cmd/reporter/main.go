package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/domain/telemetry"
	"customizer_telemetry/internal/infra/config"
	idb "customizer_telemetry/internal/infra/database"
	"customizer_telemetry/internal/infra/fieldregistry"
	"customizer_telemetry/internal/infra/httpserver"
	"customizer_telemetry/internal/infra/logger"
	"customizer_telemetry/internal/infra/scheduler"
	"customizer_telemetry/internal/infra/security"
	"customizer_telemetry/internal/infra/telegram"
	"customizer_telemetry/internal/infra/transport"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/telebot.v3"
)

func main() {
	envFile := pflag.String("env-file", "", "path to a .env file (default: .env in the working directory)")
	statusOnly := pflag.Bool("status", false, "print the telemetry status as JSON and exit")
	pflag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":       cfg.Environment,
		"database_driver":   cfg.DatabaseDriver,
		"telemetry_enabled": cfg.TelemetryEnabled,
		"telegram_enabled":  cfg.TelegramEnabled(),
	}).Info("Configuration loaded")

	if err := run(cfg, *statusOnly, mainLogger); err != nil {
		mainLogger.WithError(err).Fatal("Application stopped with error")
	}
}

func run(cfg *config.AppConfig, statusOnly bool, mainLogger *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer db.Close()
	if err := idb.Migrate(db, cfg.DatabaseDriver); err != nil {
		return err
	}
	optionRepo := idb.NewOptionRepository(db, cfg.DatabaseDriver)
	mainLogger.Info("Option store ready")

	registry, err := fieldregistry.LoadFile(cfg.FieldsFile)
	if err != nil {
		return fmt.Errorf("could not load field schema: %w", err)
	}
	mainLogger.WithField("fields", len(registry.Fields())).Info("Field registry loaded")
	if cfg.FieldsWatch {
		watcher, err := fieldregistry.NewWatcher(registry, cfg.FieldsFile, 250*time.Millisecond, logger.Component("fieldregistry"))
		if err != nil {
			mainLogger.WithError(err).Warn("Field schema hot reload disabled")
		} else {
			go watcher.Run(ctx)
		}
	}

	nonces, err := security.NewNonceIssuer(cfg.NonceSecret, cfg.NonceTTL)
	if err != nil {
		return err
	}

	sender := transport.NewFormSender(cfg.TelemetryEndpoint, cfg.TelemetryAction, logger.Component("transport"))
	reporter := app.NewReporter(
		optionRepo,
		registry,
		sender,
		nonces,
		telemetry.HostInfo{Name: cfg.HostName, Author: cfg.HostAuthor, URI: cfg.HostURI},
		logger.Component("app"),
	)

	if statusOnly {
		st, err := reporter.Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	serverOpts := httpserver.Options{Addr: cfg.HTTPAddr, Logger: logger.Component("http")}
	var telemetryScheduler *scheduler.TelemetryScheduler
	var bot *telebot.Bot

	if cfg.TelemetryEnabled {
		serverOpts.Hook = reporter
		serverOpts.Notices = reporter
		serverOpts.Status = reporter

		// Left nil unless the bot is configured, so the scheduler skips the notice job.
		var notifService app.NotificationService
		if cfg.TelegramEnabled() {
			bot, err = newBot(cfg, logger.Component("telebot"))
			if err != nil {
				return fmt.Errorf("could not create Telegram bot: %w", err)
			}
			impl, err := app.NewNotificationServiceImpl(reporter, telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, cfg.AdminPageURL, logger.Component("app"))
			if err != nil {
				return err
			}
			notifService = impl

			adminService := app.NewAdminService(reporter, cfg.AdminTelegramID)
			botLogger := logger.Component("telegram")
			telegram.RegisterBotCommands(bot, adminService, botLogger)
			telegram.RegisterAdminHandlers(ctx, bot, adminService, notifService, botLogger)
			telegram.RegisterConsentResponseHandlers(ctx, bot, adminService, botLogger)
			mainLogger.Info("Telegram handlers registered")
		}

		telemetryScheduler = scheduler.NewTelemetryScheduler(reporter, notifService, logger.Component("scheduler"), cfg.CronSpecSendCheck, cfg.CronSpecNotice)
		if err := telemetryScheduler.Start(); err != nil {
			return err
		}
	} else {
		mainLogger.Info("Telemetry disabled, consent notice and reporting are off")
	}

	if bot != nil {
		go bot.Start()
	}

	mainLogger.Info("Application setup complete")
	serveErr := httpserver.New(serverOpts).Run(ctx)

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	if telemetryScheduler != nil {
		telemetryScheduler.Stop()
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := sender.Wait(waitCtx); err != nil {
		mainLogger.WithError(err).Warn("Pending telemetry report did not finish")
	}
	mainLogger.Info("Application shut down gracefully.")
	return serveErr
}

func newBot(cfg *config.AppConfig, botLogger *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	}
	return telebot.NewBot(pref)
}
