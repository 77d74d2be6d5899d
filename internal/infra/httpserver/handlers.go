package httpserver

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/domain/telemetry"
)

var adminPage = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Customizer admin</title></head>
<body>
<h1>Customizer admin</h1>
{{with .Notice}}
<div class="notice notice-info" id="telemetry-notice">
  <h3>Help us improve the customizer framework</h3>
  <p>Agree to send anonymous usage data. No identifying information about you or your site is collected.</p>
  <table>
    <thead><tr><th colspan="2">Data that will be sent</th></tr></thead>
    <tbody>
    {{range .Rows}}<tr><td>{{index . 0}}</td><td><code>{{index . 1}}</code></td></tr>
    {{end}}
    </tbody>
  </table>
  <p>
    <a class="button button-primary" href="{{.ConsentURL}}">I agree</a>
    <a class="button" href="{{.DeclineURL}}">No thanks</a>
  </p>
</div>
{{end}}
</body>
</html>
`))

type adminPageData struct {
	Notice *telemetry.Notice
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	// The middleware has already acted on the answer; drop the markers so a
	// reload does not resubmit it.
	q := r.URL.Query()
	if q.Has(app.MarkerConsent) || q.Has(app.MarkerDismiss) {
		q.Del(app.MarkerConsent)
		q.Del(app.MarkerDismiss)
		q.Del(app.NonceParam)
		target := url.URL{Path: r.URL.Path, RawQuery: q.Encode()}
		http.Redirect(w, r, target.String(), http.StatusSeeOther)
		return
	}

	data := adminPageData{}
	if s.notices != nil {
		base := &url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery}
		notice, err := s.notices.RenderNotice(r.Context(), base)
		if err != nil {
			// The page is still usable without the notice.
			s.logger.WithError(err).Error("Failed to render telemetry notice")
		}
		data.Notice = notice
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := adminPage.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to write admin page")
	}
}

func (s *Server) handleTelemetryStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"enabled": s.status != nil}
	if s.status != nil {
		st, err := s.status.Status(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Failed to load telemetry status")
			http.Error(w, "telemetry status unavailable", http.StatusInternalServerError)
			return
		}
		resp["status"] = st
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
