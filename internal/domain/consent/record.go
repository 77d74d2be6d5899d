// internal/domain/consent/record.go
package consent

import (
	"database/sql"
	"time"
)

// ThrottleWindow is the minimum interval between two telemetry dispatches.
const ThrottleWindow = 30 * 24 * time.Hour

// SendRecord tracks when telemetry was last dispatched for this installation.
// The timestamp is written on every attempt, successful or not.
type SendRecord struct {
	LastSentAt sql.NullTime
}

// Due reports whether a new dispatch is allowed at now.
func (r SendRecord) Due(now time.Time) bool {
	if !r.LastSentAt.Valid {
		return true
	}
	return now.Sub(r.LastSentAt.Time) >= ThrottleWindow
}

// NextDueAt returns the earliest time a dispatch is allowed. The zero time
// means a dispatch is allowed right away.
func (r SendRecord) NextDueAt() time.Time {
	if !r.LastSentAt.Valid {
		return time.Time{}
	}
	return r.LastSentAt.Time.Add(ThrottleWindow)
}
