// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"net/url"

	"customizer_telemetry/internal/app/lifecycle"
	domainTelegram "customizer_telemetry/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// NotificationService pushes the consent notice to the administrator outside
// of a page view.
type NotificationService interface {
	// PushNotice sends the notice while consent is undecided. It reports
	// whether a message was sent.
	PushNotice(ctx context.Context) (bool, error)
}

// NotificationServiceImpl delivers the notice over Telegram.
type NotificationServiceImpl struct {
	renderer        lifecycle.NoticeRenderer
	telegramClient  domainTelegram.Client
	adminTelegramID int64
	adminPageURL    *url.URL
	logger          *logrus.Entry
}

var _ NotificationService = (*NotificationServiceImpl)(nil)

// NewNotificationServiceImpl builds the service. adminPageURL is where the
// consent links in the message point to.
func NewNotificationServiceImpl(
	renderer lifecycle.NoticeRenderer,
	tc domainTelegram.Client,
	adminID int64,
	adminPageURL string,
	logger *logrus.Entry,
) (*NotificationServiceImpl, error) {
	base, err := url.Parse(adminPageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid admin page URL %q: %w", adminPageURL, err)
	}
	return &NotificationServiceImpl{
		renderer:        renderer,
		telegramClient:  tc,
		adminTelegramID: adminID,
		adminPageURL:    base,
		logger:          logger.WithField("component", "notification_service"),
	}, nil
}

func (s *NotificationServiceImpl) PushNotice(ctx context.Context) (bool, error) {
	notice, err := s.renderer.RenderNotice(ctx, s.adminPageURL)
	if err != nil {
		return false, fmt.Errorf("failed to render notice: %w", err)
	}
	if notice == nil {
		s.logger.Debug("Consent already decided, no notice to push")
		return false, nil
	}

	if err := s.telegramClient.SendNotice(s.adminTelegramID, notice.Text(), domainTelegram.NoticeMarkup()); err != nil {
		return false, fmt.Errorf("failed to send notice to admin %d: %w", s.adminTelegramID, err)
	}
	s.logger.WithField("admin_id", s.adminTelegramID).Info("Telemetry notice pushed to admin")
	return true, nil
}
