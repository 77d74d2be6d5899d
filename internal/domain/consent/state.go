// internal/domain/consent/state.go
package consent

// State is the administrator's answer to the telemetry consent notice.
type State string

const (
	StateUndecided State = "UNDECIDED"
	StateOptedIn   State = "OPTED_IN"
	StateDeclined  State = "DECLINED"
)

// Option keys in the host key-value store.
const (
	OptionOptIn    = "telemetry_opt_in"
	OptionDeclined = "telemetry_declined"
	OptionLastSent = "telemetry_last_sent"
)

// Flags mirrors the two independent persisted consent flags.
type Flags struct {
	OptIn    bool
	Declined bool
}

// State derives the consent state. Opt-in wins over a recorded decline so a
// later consent link still takes effect.
func (f Flags) State() State {
	switch {
	case f.OptIn:
		return StateOptedIn
	case f.Declined:
		return StateDeclined
	default:
		return StateUndecided
	}
}

func (s State) String() string {
	return string(s)
}
