package telemetry

import "context"

// Dispatcher sends a payload to the remote collector without waiting for the
// outcome. Implementations must return promptly and must not report failures
// to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload Payload)
}
