// internal/infra/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"

	"customizer_telemetry/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init configures the global logger from the application configuration.
func Init(cfg *config.AppConfig) {
	Configure(Log, os.Stdout, cfg.LogLevel, cfg.Environment)

	Log.Info("Logger initialized successfully.")
	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
	Log.Debugf("Log format set for environment: %s", cfg.Environment)
}

// Configure applies level, formatter and output to l. An unknown level falls
// back to info.
func Configure(l *logrus.Logger, out io.Writer, level, environment string) {
	l.SetOutput(out)

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", level, err)
	} else {
		l.SetLevel(parsed)
	}

	if isStructuredEnv(environment) {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

func isStructuredEnv(environment string) bool {
	switch strings.ToLower(environment) {
	case "production", "staging":
		return true
	}
	return false
}

// Get returns the configured global logger.
func Get() *logrus.Logger {
	return Log
}

// Component returns an entry tagged with the given component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
