package telemetry

import (
	"fmt"
	"strings"
)

// Notice is the consent request shown to the administrator: the data that
// would be sent and the two action links.
type Notice struct {
	Payload    Payload
	ConsentURL string
	DeclineURL string
}

// Rows lists the payload as label/value pairs in display order.
func (n *Notice) Rows() [][2]string {
	return [][2]string{
		{"Runtime Version", n.Payload.RuntimeVersion},
		{"Host Name", n.Payload.HostName},
		{"Host Author", n.Payload.HostAuthor},
		{"Host URI", n.Payload.HostURI},
		{"Field Types Used", strings.Join(n.Payload.FieldTypesUsed, ",")},
	}
}

// Text renders the notice as plain text.
func (n *Notice) Text() string {
	var b strings.Builder
	b.WriteString("Help us improve the customizer framework.\n")
	b.WriteString("Agree to send anonymous usage data. No identifying information about you or your site is collected.\n\n")
	b.WriteString("Data that will be sent:\n")
	for _, row := range n.Rows() {
		b.WriteString(fmt.Sprintf("  %s: %s\n", row[0], row[1]))
	}
	if n.ConsentURL != "" {
		b.WriteString(fmt.Sprintf("\nI agree: %s\n", n.ConsentURL))
	}
	if n.DeclineURL != "" {
		b.WriteString(fmt.Sprintf("No thanks: %s\n", n.DeclineURL))
	}
	return b.String()
}
