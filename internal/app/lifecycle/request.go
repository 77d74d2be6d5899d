// Package lifecycle models one inbound admin request as seen by hooks: the
// query parameters it carries and the work deferred until its response has
// been written.
package lifecycle

import (
	"context"
	"net/url"
	"sync"
)

// Request is the explicit request context handed to hooks.
type Request struct {
	Query url.Values

	mu       sync.Mutex
	deferred []func(context.Context)
}

// NewRequest wraps the given query. A nil query is treated as empty.
func NewRequest(query url.Values) *Request {
	if query == nil {
		query = url.Values{}
	}
	return &Request{Query: query}
}

// AtEnd schedules fn to run after the primary response is complete.
func (r *Request) AtEnd(fn func(context.Context)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.deferred = append(r.deferred, fn)
	r.mu.Unlock()
}

// RunDeferred runs the scheduled functions in registration order and clears
// the list, so a second call is a no-op.
func (r *Request) RunDeferred(ctx context.Context) {
	r.mu.Lock()
	fns := r.deferred
	r.deferred = nil
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}
