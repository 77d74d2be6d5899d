// Package httpserver serves the admin page that carries the consent notice,
// a health probe and a JSON status endpoint. Admin requests pass through the
// request lifecycle so hooks see every page view.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"customizer_telemetry/internal/app"
	"customizer_telemetry/internal/app/lifecycle"

	"github.com/sirupsen/logrus"
)

// StatusProvider reports the reporter status.
type StatusProvider interface {
	Status(ctx context.Context) (app.Status, error)
}

// Options holds everything the Server needs from the caller. Hook, Notices
// and Status are nil when telemetry is disabled.
type Options struct {
	Addr    string
	Hook    lifecycle.Hook
	Notices lifecycle.NoticeRenderer
	Status  StatusProvider
	Logger  *logrus.Entry
}

type Server struct {
	addr    string
	hook    lifecycle.Hook
	notices lifecycle.NoticeRenderer
	status  StatusProvider
	logger  *logrus.Entry
	server  *http.Server
}

func New(opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	s := &Server{
		addr:    addr,
		hook:    opts.Hook,
		notices: opts.Notices,
		status:  opts.Status,
		logger:  opts.Logger.WithField("component", "httpserver"),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetryStatus)

	var admin http.Handler = http.HandlerFunc(s.handleAdmin)
	if s.hook != nil {
		admin = Middleware(s.hook, admin)
	}
	mux.Handle("GET /admin", admin)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.logger.WithField("addr", ln.Addr().String()).Info("HTTP server listening")

	go func() {
		<-ctx.Done()
		s.logger.Info("HTTP server shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Middleware runs hook.OnRequestInit before next and the work the hook
// deferred after next has written the response.
func Middleware(hook lifecycle.Hook, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := lifecycle.NewRequest(r.URL.Query())
		hook.OnRequestInit(r.Context(), req)
		next.ServeHTTP(w, r)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// The client may hang up once the body is flushed.
		req.RunDeferred(context.WithoutCancel(r.Context()))
	})
}
