package scheduler

import (
	"context"
	"fmt"
	"time"

	"customizer_telemetry/internal/app" // For NotificationService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the reporter the send-check job drives.
type Sender interface {
	MaybeSend(ctx context.Context) bool
}

type TelemetryScheduler struct {
	cronEngine        *cron.Cron
	sender            Sender
	notifService      app.NotificationService // Optional; nil disables the notice job
	logger            *logrus.Entry
	cronSpecSendCheck string
	cronSpecNotice    string
	jobTimeout        time.Duration
}

func NewTelemetryScheduler(
	sender Sender,
	notifService app.NotificationService,
	logger *logrus.Entry,
	cronSpecSendCheck string, // e.g., "0 3 * * *" (03:00 daily)
	cronSpecNotice string, // e.g., "0 10 * * 1" (10:00 on Mondays)
) *TelemetryScheduler {
	return &TelemetryScheduler{
		cronEngine:        cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		sender:            sender,
		notifService:      notifService,
		logger:            logger.WithField("component", "scheduler"),
		cronSpecSendCheck: cronSpecSendCheck,
		cronSpecNotice:    cronSpecNotice,
		jobTimeout:        time.Minute,
	}
}

// Start registers the jobs and starts the cron engine. An invalid expression is
// returned before anything runs.
func (s *TelemetryScheduler) Start() error {
	s.logger.Info("Starting telemetry scheduler...")

	// Backstop for installations that see no admin traffic; the throttle
	// window still applies.
	if _, err := s.cronEngine.AddFunc(s.cronSpecSendCheck, s.RunSendCheck); err != nil {
		return fmt.Errorf("could not add send-check cron job %q: %w", s.cronSpecSendCheck, err)
	}

	if s.notifService != nil {
		if _, err := s.cronEngine.AddFunc(s.cronSpecNotice, s.RunNoticePush); err != nil {
			return fmt.Errorf("could not add notice cron job %q: %w", s.cronSpecNotice, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Telemetry scheduler started with jobs.")
	return nil
}

// RunSendCheck is the body of the send-check job.
func (s *TelemetryScheduler) RunSendCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	sent := s.sender.MaybeSend(ctx)
	s.logger.WithField("dispatched", sent).Debug("Cron job triggered for telemetry send check.")
}

// RunNoticePush is the body of the notice job.
func (s *TelemetryScheduler) RunNoticePush() {
	if s.notifService == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	sent, err := s.notifService.PushNotice(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during telemetry notice push")
		return
	}
	s.logger.WithField("sent", sent).Debug("Cron job triggered for telemetry notice.")
}

func (s *TelemetryScheduler) Stop() {
	s.logger.Info("Stopping telemetry scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Telemetry scheduler gracefully stopped.")
}
