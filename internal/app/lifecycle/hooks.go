package lifecycle

import (
	"context"
	"net/url"

	"customizer_telemetry/internal/domain/telemetry"
)

// Hook runs once at the start of every admin request.
type Hook interface {
	OnRequestInit(ctx context.Context, req *Request)
}

// NoticeRenderer produces the admin notice for a page view, or nil when there
// is nothing to show. base is the URL of the page being rendered.
type NoticeRenderer interface {
	RenderNotice(ctx context.Context, base *url.URL) (*telemetry.Notice, error)
}
