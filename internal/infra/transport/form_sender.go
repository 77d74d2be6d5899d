// Package transport delivers telemetry payloads to the remote collector.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"customizer_telemetry/internal/domain/telemetry"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// sendTimeout bounds a single background POST.
const sendTimeout = 10 * time.Second

// FormSender POSTs payloads as form data without waiting for the result.
// A token-bucket limiter drops dispatches that arrive in a burst, which
// happens when concurrent requests pass the throttle check together.
type FormSender struct {
	endpoint string
	action   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *logrus.Entry

	wg sync.WaitGroup
}

var _ telemetry.Dispatcher = (*FormSender)(nil)

// NewFormSender returns a sender for endpoint. action is sent as the
// "action" form field with every payload.
func NewFormSender(endpoint, action string, logger *logrus.Entry) *FormSender {
	return &FormSender{
		endpoint: endpoint,
		action:   action,
		client:   &http.Client{Timeout: sendTimeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute), 1),
		logger:   logger.WithField("component", "form_sender"),
	}
}

// Dispatch starts the POST in the background and returns immediately. The
// request is detached from ctx so a finished admin request does not cancel it.
func (s *FormSender) Dispatch(_ context.Context, payload telemetry.Payload) {
	if !s.limiter.Allow() {
		s.logger.Debug("Dropping telemetry dispatch inside burst window")
		return
	}
	body := EncodeForm(s.action, payload).Encode()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.post(ctx, body); err != nil {
			s.logger.WithError(err).Warn("Telemetry dispatch failed")
		}
	}()
}

func (s *FormSender) post(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post telemetry: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	s.logger.WithField("status", resp.StatusCode).Debug("Telemetry collector responded")
	return nil
}

// Wait blocks until in-flight dispatches finish or ctx is done. Used on
// shutdown and in tests.
func (s *FormSender) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EncodeForm flattens a payload into form fields. The field type list is
// sent as indexed keys: fieldTypesUsed[0], fieldTypesUsed[1], ...
func EncodeForm(action string, p telemetry.Payload) url.Values {
	form := url.Values{}
	form.Set("action", action)
	form.Set("runtimeVersion", p.RuntimeVersion)
	form.Set("hostName", p.HostName)
	form.Set("hostAuthor", p.HostAuthor)
	form.Set("hostUri", p.HostURI)
	for i, t := range p.FieldTypesUsed {
		form.Set(fmt.Sprintf("fieldTypesUsed[%d]", i), t)
	}
	return form
}
