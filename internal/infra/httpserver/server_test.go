package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/app/lifecycle"
	"customizer_telemetry/internal/domain/consent"
	"customizer_telemetry/internal/domain/field"
	"customizer_telemetry/internal/domain/telemetry"
	"customizer_telemetry/internal/infra/database"
	"customizer_telemetry/internal/infra/fieldregistry"
	"customizer_telemetry/internal/infra/security"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDispatcher struct {
	mu    sync.Mutex
	count int
}

func (d *countingDispatcher) Dispatch(context.Context, telemetry.Payload) {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
}

func (d *countingDispatcher) dispatched() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

type stack struct {
	handler    http.Handler
	reporter   *app.Reporter
	dispatcher *countingDispatcher
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db, err := database.NewSQLiteConnection("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, database.DriverSQLite))

	registry := fieldregistry.New()
	require.NoError(t, registry.AddField(field.Field{ID: "my_color", Type: "color"}))
	require.NoError(t, registry.AddField(field.Field{ID: "my_font", Type: "typography"}))

	nonces, err := security.NewNonceIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	dispatcher := &countingDispatcher{}
	reporter := app.NewReporter(
		database.NewOptionRepository(db, database.DriverSQLite),
		registry,
		dispatcher,
		nonces,
		telemetry.HostInfo{Name: "Demo Theme"},
		quietLogger(),
	)
	srv := New(Options{Hook: reporter, Notices: reporter, Status: reporter, Logger: quietLogger()})
	return &stack{handler: srv.Handler(), reporter: reporter, dispatcher: dispatcher}
}

func (s *stack) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (s *stack) state(t *testing.T) consent.State {
	t.Helper()
	st, err := s.reporter.State(context.Background())
	require.NoError(t, err)
	return st
}

var linkRx = regexp.MustCompile(`href="([^"]+)">(I agree|No thanks)<`)

func noticeLinks(t *testing.T, body string) map[string]string {
	t.Helper()
	links := map[string]string{}
	for _, m := range linkRx.FindAllStringSubmatch(body, -1) {
		links[m[2]] = html.UnescapeString(m[1])
	}
	return links
}

func TestHealthz(t *testing.T) {
	s := newStack(t)
	rec := s.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestAdmin_ShowsNoticeWhileUndecided(t *testing.T) {
	s := newStack(t)
	rec := s.get(t, "/admin?page=home")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="telemetry-notice"`)
	assert.Contains(t, body, "color,typography")
	assert.Contains(t, body, "Demo Theme")

	links := noticeLinks(t, body)
	require.Len(t, links, 2)
	u, err := url.Parse(links["I agree"])
	require.NoError(t, err)
	assert.Equal(t, "/admin", u.Path)
	assert.Equal(t, "home", u.Query().Get("page"))
	assert.Equal(t, app.MarkerValue, u.Query().Get(app.MarkerConsent))
	assert.NotEmpty(t, u.Query().Get(app.NonceParam))
}

func TestAdmin_ConsentLinkOptsInRedirectsAndSends(t *testing.T) {
	s := newStack(t)
	links := noticeLinks(t, s.get(t, "/admin?page=home").Body.String())

	rec := s.get(t, links["I agree"])
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?page=home", rec.Header().Get("Location"))
	assert.Equal(t, consent.StateOptedIn, s.state(t))
	assert.Equal(t, 1, s.dispatcher.dispatched())

	// Following the redirect shows no notice and does not send again.
	after := s.get(t, "/admin?page=home")
	assert.NotContains(t, after.Body.String(), `id="telemetry-notice"`)
	assert.Equal(t, 1, s.dispatcher.dispatched())
}

func TestAdmin_DeclineLink(t *testing.T) {
	s := newStack(t)
	links := noticeLinks(t, s.get(t, "/admin").Body.String())

	rec := s.get(t, links["No thanks"])
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, consent.StateDeclined, s.state(t))
	assert.Zero(t, s.dispatcher.dispatched())
}

func TestAdmin_ForgedNonceIsIgnored(t *testing.T) {
	s := newStack(t)
	rec := s.get(t, "/admin?consent-notice=telemetry&_nonce=forged")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, consent.StateUndecided, s.state(t))
	assert.Zero(t, s.dispatcher.dispatched())
}

func TestAdmin_NonceForOtherActionIsIgnored(t *testing.T) {
	s := newStack(t)
	links := noticeLinks(t, s.get(t, "/admin").Body.String())
	declineURL, err := url.Parse(links["No thanks"])
	require.NoError(t, err)

	q := url.Values{}
	q.Set(app.MarkerConsent, app.MarkerValue)
	q.Set(app.NonceParam, declineURL.Query().Get(app.NonceParam))
	s.get(t, "/admin?"+q.Encode())

	assert.Equal(t, consent.StateUndecided, s.state(t))
}

func TestTelemetryStatusEndpoint(t *testing.T) {
	s := newStack(t)
	require.NoError(t, s.reporter.Consent(context.Background()))
	require.True(t, s.reporter.MaybeSend(context.Background()))

	rec := s.get(t, "/api/telemetry")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Enabled bool `json:"enabled"`
		Status  struct {
			State      string            `json:"state"`
			LastSentAt *time.Time        `json:"lastSentAt"`
			Payload    telemetry.Payload `json:"payload"`
		} `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Enabled)
	assert.Equal(t, string(consent.StateOptedIn), body.Status.State)
	assert.NotNil(t, body.Status.LastSentAt)
	assert.Equal(t, []string{"color", "typography"}, body.Status.Payload.FieldTypesUsed)
}

func TestServer_TelemetryDisabled(t *testing.T) {
	srv := New(Options{Logger: quietLogger()})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "telemetry-notice")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/telemetry", nil))
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

type failingStatus struct{}

func (failingStatus) Status(context.Context) (app.Status, error) {
	return app.Status{}, errors.New("db down")
}

func TestTelemetryStatusEndpoint_Error(t *testing.T) {
	srv := New(Options{Status: failingStatus{}, Logger: quietLogger()})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/telemetry", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// orderHook records the order of lifecycle events.
type orderHook struct {
	events *[]string
}

func (h orderHook) OnRequestInit(_ context.Context, req *lifecycle.Request) {
	*h.events = append(*h.events, "init:"+req.Query.Get("q"))
	req.AtEnd(func(context.Context) { *h.events = append(*h.events, "deferred") })
}

func TestMiddleware_Order(t *testing.T) {
	var events []string
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		events = append(events, "handler")
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	Middleware(orderHook{events: &events}, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin?q=1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"init:1", "handler", "deferred"}, events)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := New(Options{Addr: "127.0.0.1:0", Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
