// internal/app/reporter.go
package app

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"customizer_telemetry/internal/app/lifecycle"
	"customizer_telemetry/internal/domain/consent"
	"customizer_telemetry/internal/domain/field"
	"customizer_telemetry/internal/domain/telemetry"

	"github.com/sirupsen/logrus"
)

// Query parameters understood by the reporter.
const (
	MarkerConsent = "consent-notice"
	MarkerDismiss = "hide-notice"
	MarkerValue   = "telemetry"
	NonceParam    = "_nonce"
)

// NonceService issues and verifies anti-forgery tokens bound to an action.
type NonceService interface {
	Issue(action string) (string, error)
	Verify(token, action string) bool
}

// Reporter asks the administrator for consent and, once given, sends at most
// one anonymous usage report per throttle window. It is built once by the
// composition root and handed to the request pipeline, the scheduler and the
// bot.
type Reporter struct {
	optionRepo consent.Repository
	registry   field.Registry
	dispatcher telemetry.Dispatcher
	nonces     NonceService
	host       telemetry.HostInfo
	logger     *logrus.Entry

	nowF           func() time.Time
	runtimeVersion func() string
}

var _ lifecycle.Hook = (*Reporter)(nil)
var _ lifecycle.NoticeRenderer = (*Reporter)(nil)

func NewReporter(
	optionRepo consent.Repository,
	registry field.Registry,
	dispatcher telemetry.Dispatcher,
	nonces NonceService,
	host telemetry.HostInfo,
	logger *logrus.Entry,
) *Reporter {
	return &Reporter{
		optionRepo:     optionRepo,
		registry:       registry,
		dispatcher:     dispatcher,
		nonces:         nonces,
		host:           host,
		logger:         logger.WithField("component", "reporter"),
		nowF:           time.Now,
		runtimeVersion: runtime.Version,
	}
}

// OnRequestInit handles any consent answer carried by the request and
// schedules MaybeSend after the response.
func (r *Reporter) OnRequestInit(ctx context.Context, req *lifecycle.Request) {
	r.ProcessDismissal(ctx, req)
	r.ProcessConsent(ctx, req)
	req.AtEnd(func(ctx context.Context) {
		r.MaybeSend(ctx)
	})
}

// ProcessDismissal records a decline when the request carries the dismiss
// marker and a valid token. Anything else is ignored.
func (r *Reporter) ProcessDismissal(ctx context.Context, req *lifecycle.Request) {
	if !r.authorized(req, MarkerDismiss) {
		return
	}
	if err := r.Decline(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to record telemetry decline")
	}
}

// ProcessConsent records an opt-in when the request carries the consent
// marker and a valid token. Anything else is ignored.
func (r *Reporter) ProcessConsent(ctx context.Context, req *lifecycle.Request) {
	if !r.authorized(req, MarkerConsent) {
		return
	}
	if err := r.Consent(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to record telemetry consent")
	}
}

func (r *Reporter) authorized(req *lifecycle.Request, marker string) bool {
	if req == nil || !req.Query.Has(marker) || !req.Query.Has(NonceParam) {
		return false
	}
	if strings.TrimSpace(req.Query.Get(marker)) != MarkerValue {
		return false
	}
	if !r.nonces.Verify(strings.TrimSpace(req.Query.Get(NonceParam)), marker) {
		r.logger.WithField("marker", marker).Debug("Ignoring consent answer with invalid nonce")
		return false
	}
	return true
}

// Consent persists the opt-in flag. Callers must have authenticated the actor.
func (r *Reporter) Consent(ctx context.Context) error {
	if err := r.optionRepo.SetFlag(ctx, consent.OptionOptIn, true); err != nil {
		return fmt.Errorf("failed to persist opt-in: %w", err)
	}
	r.logger.Info("Telemetry consent granted")
	return nil
}

// Decline persists the declined flag. Callers must have authenticated the actor.
func (r *Reporter) Decline(ctx context.Context) error {
	if err := r.optionRepo.SetFlag(ctx, consent.OptionDeclined, true); err != nil {
		return fmt.Errorf("failed to persist decline: %w", err)
	}
	r.logger.Info("Telemetry consent declined")
	return nil
}

// State returns the current consent state.
func (r *Reporter) State(ctx context.Context) (consent.State, error) {
	flags, err := consent.LoadFlags(ctx, r.optionRepo)
	if err != nil {
		return consent.StateUndecided, fmt.Errorf("failed to load consent flags: %w", err)
	}
	return flags.State(), nil
}

// SendRecord returns the persisted dispatch record.
func (r *Reporter) SendRecord(ctx context.Context) (consent.SendRecord, error) {
	record, err := consent.LoadSendRecord(ctx, r.optionRepo)
	if err != nil {
		return consent.SendRecord{}, fmt.Errorf("failed to load send record: %w", err)
	}
	return record, nil
}

// Status is a read-only snapshot of the reporter for status surfaces.
type Status struct {
	State      consent.State     `json:"state"`
	LastSentAt *time.Time        `json:"lastSentAt,omitempty"`
	NextDueAt  *time.Time        `json:"nextDueAt,omitempty"`
	Payload    telemetry.Payload `json:"payload"`
}

// Status collects the consent state, the send record and a payload preview.
func (r *Reporter) Status(ctx context.Context) (Status, error) {
	state, err := r.State(ctx)
	if err != nil {
		return Status{}, err
	}
	record, err := r.SendRecord(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{State: state, Payload: r.BuildPayload()}
	if record.LastSentAt.Valid {
		last := record.LastSentAt.Time.UTC()
		next := record.NextDueAt().UTC()
		st.LastSentAt = &last
		st.NextDueAt = &next
	}
	return st, nil
}

// MaybeSend dispatches a report when consent was given and the throttle window
// has elapsed. The send time is recorded whether or not the dispatch reaches
// the collector, so a failing endpoint is retried only in the next window.
// It reports whether a dispatch was issued.
func (r *Reporter) MaybeSend(ctx context.Context) bool {
	state, err := r.State(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Skipping telemetry send")
		return false
	}
	if state != consent.StateOptedIn {
		return false
	}

	record, err := r.SendRecord(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Skipping telemetry send")
		return false
	}
	now := r.nowF()
	if !record.Due(now) {
		return false
	}

	payload := r.BuildPayload()
	r.dispatcher.Dispatch(ctx, payload)

	if err := r.optionRepo.SetTime(ctx, consent.OptionLastSent, now); err != nil {
		r.logger.WithError(err).Error("Failed to record telemetry send time")
	}
	r.logger.WithFields(logrus.Fields{
		"field_types": len(payload.FieldTypesUsed),
		"sent_at":     now.UTC().Format(time.RFC3339),
	}).Info("Telemetry report dispatched")
	return true
}

// RenderNotice returns the consent notice while the administrator has not
// answered yet, and nil otherwise. base is the page the links point back to.
func (r *Reporter) RenderNotice(ctx context.Context, base *url.URL) (*telemetry.Notice, error) {
	state, err := r.State(ctx)
	if err != nil {
		return nil, err
	}
	if state != consent.StateUndecided {
		return nil, nil
	}

	consentURL, err := r.actionURL(base, MarkerConsent)
	if err != nil {
		return nil, err
	}
	declineURL, err := r.actionURL(base, MarkerDismiss)
	if err != nil {
		return nil, err
	}
	return &telemetry.Notice{
		Payload:    r.BuildPayload(),
		ConsentURL: consentURL,
		DeclineURL: declineURL,
	}, nil
}

func (r *Reporter) actionURL(base *url.URL, marker string) (string, error) {
	token, err := r.nonces.Issue(marker)
	if err != nil {
		return "", fmt.Errorf("failed to issue nonce for %s: %w", marker, err)
	}
	u := url.URL{}
	if base != nil {
		u = *base
	}
	q := u.Query()
	q.Del(MarkerConsent)
	q.Del(MarkerDismiss)
	q.Set(marker, MarkerValue)
	q.Set(NonceParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BuildPayload assembles the report from host metadata and the field
// registry. It has no side effects.
func (r *Reporter) BuildPayload() telemetry.Payload {
	types := []string{}
	if r.registry != nil {
		types = append(types, r.registry.ListRegisteredTypes()...)
	}
	return telemetry.Payload{
		RuntimeVersion: FormatRuntimeVersion(r.runtimeVersion()),
		HostName:       r.host.Name,
		HostAuthor:     r.host.Author,
		HostURI:        r.host.URI,
		FieldTypesUsed: types,
	}
}

// FormatRuntimeVersion reduces a Go runtime version such as "go1.24.3" to
// "1.24". Missing components are reported as 0.
func FormatRuntimeVersion(v string) string {
	if i := strings.Index(v, "go"); i >= 0 {
		v = v[i+2:]
	}
	if i := strings.IndexAny(v, " -+"); i >= 0 {
		v = v[:i]
	}
	parts := append(strings.Split(v, "."), "0", "0")
	if parts[0] == "" {
		parts[0] = "0"
	}
	if parts[1] == "" {
		parts[1] = "0"
	}
	return parts[0] + "." + parts[1]
}
